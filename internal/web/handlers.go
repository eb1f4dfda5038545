package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plutusedu/webisync/internal/clean"
	"github.com/plutusedu/webisync/internal/engage"
	"github.com/plutusedu/webisync/internal/logging"
	"github.com/plutusedu/webisync/internal/schema"
)

// handleIndex serves the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleListWorkflows returns the report types a run can process.
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	type workflowInfo struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
	}
	writeJSON(w, []workflowInfo{
		{Name: string(schema.WorkflowAttendees), Columns: schema.CleanAttendeeSchema},
		{Name: string(schema.WorkflowRegistrations), Columns: schema.RegistrationSchema},
	})
}

// handleProcess accepts a raw Zoom export upload and runs the pipeline.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	workflow, err := schema.ParseWorkflow(chi.URLParam(r, "workflow"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	logger := logging.WithFields(r.Context(), "workflow", workflow, "filename", header.Filename)
	logger.Info("processing report", "bytes", len(data))

	var result *clean.Result
	if raw := r.FormValue("threshold"); raw != "" {
		threshold, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || threshold < 0 || threshold > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be a number between 0 and 1")
			return
		}
		result, err = s.pipeline.ProcessWithThreshold(workflow, data, threshold)
	} else {
		result, err = s.pipeline.Process(workflow, data)
	}
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}

	run := s.runs.add(header.Filename, result)
	logger.Info("report processed",
		"run_id", run.ID,
		"records", result.Stats.DedupRecords,
		"raw_rows", result.Stats.RawRows,
	)

	writeJSON(w, run)
}

// handleRunSummary returns a processed run's metadata and statistics.
func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(chi.URLParam(r, "runID"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, run)
}

// handleDownloadClean serves the projected CSV for a run.
func (s *Server) handleDownloadClean(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(chi.URLParam(r, "runID"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	filename := "webengage_clean.csv"
	if run.Result.Workflow == schema.WorkflowRegistrations {
		filename = "webengage_registration_clean.csv"
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := run.Result.WriteCSV(w); err != nil {
		logging.FromContext(r.Context()).Error("csv write failed", "run_id", run.ID, "error", err)
	}
}

// handleDispatch delivers a run's records to WebEngage. The call blocks
// until delivery completes; pacing and retries make this slow by design, so
// the route sits behind a long write timeout.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatch is not configured; set the WebEngage credentials")
		return
	}

	// An optional JSON body overrides the configured delivery mode for this
	// run. Validate before claiming the run so a bad mode does not burn its
	// one dispatch attempt.
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid dispatch request body")
		return
	}
	var mode engage.Mode
	if req.Mode != "" {
		var err error
		if mode, err = engage.ParseMode(req.Mode); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	runID := chi.URLParam(r, "runID")
	run, ok := s.runs.beginDispatch(runID)
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "dispatch already started for this run")
		return
	}

	var records []engage.Record
	if run.Result.Workflow == schema.WorkflowRegistrations {
		records = engage.BuildRegistrantDispatch(run.Result.Registrants)
	} else {
		records = engage.BuildAttendeeDispatch(run.Result.Attendees)
	}

	logger := logging.WithFields(r.Context(), "run_id", run.ID, "records", len(records))
	logger.Info("dispatch started")
	started := time.Now()

	var summary engage.Summary
	if mode != "" {
		summary = s.dispatcher.DispatchWithMode(r.Context(), records, mode)
	} else {
		summary = s.dispatcher.Dispatch(r.Context(), records)
	}
	s.runs.finishDispatch(runID, summary)

	logger.Info("dispatch finished",
		"duration_ms", time.Since(started).Milliseconds(),
		"users_succeeded", summary.Users.Succeeded,
		"clean", summary.Succeeded(),
	)
	writeJSON(w, summary)
}

// handleDispatchStatus returns the dispatch state and, when finished, the
// delivery summary.
func (s *Server) handleDispatchStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(chi.URLParam(r, "runID"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, map[string]any{
		"state":   run.DispatchState,
		"summary": run.DispatchSummary,
	})
}
