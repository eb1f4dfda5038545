package web

// errors.go provides unified error response handling for the web layer.
//
// Pipeline input errors (bad section layout, header mismatch, threshold
// failures) are shown to the caller verbatim since they describe the
// uploaded file. Everything else is logged server-side and replaced with a
// generic message so internals never leak to clients.

import (
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/plutusedu/webisync/internal/clean"
)

// respondPipelineError maps a pipeline error onto a response. Input errors
// are the client's fault and return 422; anything else is a server fault.
func respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := chimw.GetReqID(r.Context())
	if clean.IsInputError(err) {
		slog.Warn("report rejected",
			"path", r.URL.Path,
			"error", err.Error(),
			"request_id", requestID,
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.Error("pipeline failure",
		"path", r.URL.Path,
		"error", err.Error(),
		"request_id", requestID,
	)
	writeError(w, http.StatusInternalServerError, "internal error while processing the report")
}

// sanitizeErrorMessage trims an error message down to a single safe line.
const maxErrorMessageLen = 300

func sanitizeErrorMessage(message string) string {
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.Join(strings.Fields(message), " ")
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen] + "..."
	}
	return message
}
