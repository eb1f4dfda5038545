package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/plutusedu/webisync/internal/clean"
	"github.com/plutusedu/webisync/internal/config"
	"github.com/plutusedu/webisync/internal/engage"
)

const attendeeExport = `Topic,Webinar ID,Actual Start Time,Actual Duration (minutes)
ACCA Foundations 2024,989 1234 5678,2/3/2024 10:00:00 AM,62

Panelist Details
User Name,Email
Satyarth Dwivedi,s@example.com

Attendee Details
Attended,User Name (Original Name),First Name,Last Name,Email,Phone,Registration Time,Approval Status,Join Time,Leave Time,Time in Session (minutes),Is Guest,Country/Region Name,Source Name
Yes,pat singh,pat,singh,pat@example.com,9876543210,1/3/2024 9:00:00 AM,approved,2/3/2024 10:00:00 AM,2/3/2024 10:45:00 AM,45,No,india,Newsletter
`

func testServerConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			RequestTimeout: time.Minute,
		},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20},
		Pipeline: config.PipelineConfig{DatetimeThreshold: 0.5},
		Rate:     config.RateLimitConfig{Enabled: false},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func testPipeline() *Pipeline {
	return &Pipeline{Options: clean.Options{
		Enrichment:        config.DefaultEnrichment(),
		DatetimeThreshold: 0.5,
	}}
}

func newTestServer(t *testing.T, dispatcher *engage.Dispatcher) *Server {
	t.Helper()
	return NewServer(testServerConfig(), testPipeline(), dispatcher)
}

func uploadReport(t *testing.T, srv *Server, workflow, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte(body))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/process/"+workflow, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadReportWithThreshold(t *testing.T, srv *Server, workflow, body, threshold string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("threshold", threshold)
	fw, err := mw.CreateFormFile("file", "report.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte(body))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/process/"+workflow, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListWorkflows(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var workflows []struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&workflows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(workflows) != 2 || workflows[0].Name != "attendees" {
		t.Errorf("workflows = %+v", workflows)
	}
	if len(workflows[0].Columns) != 22 {
		t.Errorf("attendee columns = %d", len(workflows[0].Columns))
	}
}

func TestProcessAndDownload(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := uploadReport(t, srv, "attendees", attendeeExport)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var run Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.ID == "" || run.Result == nil {
		t.Fatalf("run = %+v", run)
	}
	if run.Result.Metadata.Category != "ACCA" {
		t.Errorf("category = %q", run.Result.Metadata.Category)
	}
	if run.DispatchState != DispatchNotStarted {
		t.Errorf("dispatch state = %q", run.DispatchState)
	}

	dlReq := httptest.NewRequest(http.MethodGet, "/api/run/"+run.ID+"/clean.csv", nil)
	dlRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(dlRec, dlReq)
	if dlRec.Code != http.StatusOK {
		t.Fatalf("download status = %d", dlRec.Code)
	}
	if ct := dlRec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	if cd := dlRec.Header().Get("Content-Disposition"); !strings.Contains(cd, "webengage_clean.csv") {
		t.Errorf("disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(dlRec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d", len(lines))
	}
	if !strings.Contains(lines[1], "919876543210") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestProcessRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := uploadReport(t, srv, "attendees", "Topic,Webinar ID\nT,1\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if !strings.Contains(body["error"], "Attendee Details") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestProcessThresholdOverride(t *testing.T) {
	srv := newTestServer(t, nil)

	// The join times here never parse, so the default threshold rejects the
	// report.
	garbled := strings.ReplaceAll(attendeeExport, "2/3/2024 10:00:00 AM,2/3/2024 10:45:00 AM", "soon,later")
	rec := uploadReport(t, srv, "attendees", garbled)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("default threshold status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// A per-run threshold of zero disables the gate.
	rec = uploadReportWithThreshold(t, srv, "attendees", garbled, "0")
	if rec.Code != http.StatusOK {
		t.Fatalf("threshold 0 status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = uploadReportWithThreshold(t, srv, "attendees", attendeeExport, "1.5")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range threshold status = %d", rec.Code)
	}
}

func TestProcessUnknownWorkflow(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := uploadReport(t, srv, "webinars", attendeeExport)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/run/no-such-run", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDispatchUnconfigured(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := uploadReport(t, srv, "attendees", attendeeExport)
	var run Run
	json.NewDecoder(rec.Body).Decode(&run)

	req := httptest.NewRequest(http.MethodPost, "/api/run/"+run.ID+"/dispatch", nil)
	drec := httptest.NewRecorder()
	srv.Router().ServeHTTP(drec, req)
	if drec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", drec.Code)
	}
}

func TestDispatchDeliversAndGuardsRepeat(t *testing.T) {
	var calls int
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	client, err := engage.NewClient(engage.ClientConfig{
		BaseURL:     api.URL,
		LicenseCode: "lic",
		APIKey:      "key",
		HTTPClient:  api.Client(),
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	dispatcher := engage.NewDispatcher(client, engage.DispatcherConfig{
		Mode:              engage.ModePerRecord,
		RequestsPerSecond: 10000,
	})

	srv := newTestServer(t, dispatcher)
	rec := uploadReport(t, srv, "attendees", attendeeExport)
	var run Run
	json.NewDecoder(rec.Body).Decode(&run)

	req := httptest.NewRequest(http.MethodPost, "/api/run/"+run.ID+"/dispatch", nil)
	drec := httptest.NewRecorder()
	srv.Router().ServeHTTP(drec, req)
	if drec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", drec.Code, drec.Body.String())
	}

	var summary engage.Summary
	if err := json.NewDecoder(drec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !summary.Succeeded() || summary.Users.Succeeded != 1 {
		t.Errorf("summary = %+v", summary)
	}
	// One user upsert plus registration and attendance events.
	if calls != 3 {
		t.Errorf("api calls = %d", calls)
	}

	// A second dispatch for the same run is refused.
	repeat := httptest.NewRecorder()
	srv.Router().ServeHTTP(repeat, httptest.NewRequest(http.MethodPost, "/api/run/"+run.ID+"/dispatch", nil))
	if repeat.Code != http.StatusConflict {
		t.Errorf("repeat status = %d", repeat.Code)
	}

	// Status endpoint reports the stored summary.
	status := httptest.NewRecorder()
	srv.Router().ServeHTTP(status, httptest.NewRequest(http.MethodGet, "/api/run/"+run.ID+"/dispatch", nil))
	var statusBody struct {
		State   string          `json:"state"`
		Summary *engage.Summary `json:"summary"`
	}
	if err := json.NewDecoder(status.Body).Decode(&statusBody); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if statusBody.State != DispatchDone || statusBody.Summary == nil {
		t.Errorf("status = %+v", statusBody)
	}
}

func TestDispatchModeOverride(t *testing.T) {
	var paths []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer api.Close()

	client, err := engage.NewClient(engage.ClientConfig{
		BaseURL:     api.URL,
		LicenseCode: "lic",
		APIKey:      "key",
		HTTPClient:  api.Client(),
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	dispatcher := engage.NewDispatcher(client, engage.DispatcherConfig{
		Mode:              engage.ModePerRecord,
		RequestsPerSecond: 10000,
	})

	srv := newTestServer(t, dispatcher)
	rec := uploadReport(t, srv, "attendees", attendeeExport)
	var run Run
	json.NewDecoder(rec.Body).Decode(&run)

	// An unknown mode is rejected without claiming the run.
	bad := httptest.NewRequest(http.MethodPost, "/api/run/"+run.ID+"/dispatch", strings.NewReader(`{"mode":"firehose"}`))
	brec := httptest.NewRecorder()
	srv.Router().ServeHTTP(brec, bad)
	if brec.Code != http.StatusBadRequest {
		t.Fatalf("bad mode status = %d", brec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/run/"+run.ID+"/dispatch", strings.NewReader(`{"mode":"bulk"}`))
	drec := httptest.NewRecorder()
	srv.Router().ServeHTTP(drec, req)
	if drec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", drec.Code, drec.Body.String())
	}

	var summary engage.Summary
	if err := json.NewDecoder(drec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Mode != engage.ModeBulk || !summary.Succeeded() {
		t.Errorf("summary = %+v", summary)
	}
	for _, p := range paths {
		if !strings.Contains(p, "/bulk-") {
			t.Errorf("expected only bulk endpoints, saw %q", p)
		}
	}
}

func TestDispatchRequiresAPIKeyWhenConfigured(t *testing.T) {
	cfg := testServerConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"open-sesame"}
	srv := NewServer(cfg, testPipeline(), nil)

	rec := uploadReport(t, srv, "attendees", attendeeExport)
	var run Run
	json.NewDecoder(rec.Body).Decode(&run)

	req := httptest.NewRequest(http.MethodPost, "/api/run/"+run.ID+"/dispatch", nil)
	drec := httptest.NewRecorder()
	srv.Router().ServeHTTP(drec, req)
	if drec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d", drec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/run/"+run.ID+"/dispatch", nil)
	req.Header.Set("X-API-Key", "open-sesame")
	drec = httptest.NewRecorder()
	srv.Router().ServeHTTP(drec, req)
	// Credentials pass auth; dispatch itself is unconfigured here.
	if drec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status with key = %d", drec.Code)
	}
}

func TestProcessUploadRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.Rate = config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 100,
		UploadLimit:       1,
	}
	srv := NewServer(cfg, testPipeline(), nil)

	if rec := uploadReport(t, srv, "attendees", attendeeExport); rec.Code != http.StatusOK {
		t.Fatalf("first upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec := uploadReport(t, srv, "attendees", attendeeExport)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second upload status = %d, want 429", rec.Code)
	}

	// The tighter limit only covers processing; reads stay available.
	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	wrec := httptest.NewRecorder()
	srv.Router().ServeHTTP(wrec, req)
	if wrec.Code != http.StatusOK {
		t.Errorf("workflows status = %d", wrec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	cfg := testServerConfig()
	cfg.Security.EnableCSP = true
	srv := NewServer(cfg, testPipeline(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP header")
	}
}
