package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plutusedu/webisync/internal/clean"
	"github.com/plutusedu/webisync/internal/engage"
	"github.com/plutusedu/webisync/internal/schema"
)

// Pipeline runs the record pipeline with the server's configured mappings.
type Pipeline struct {
	Options clean.Options
}

// Process runs one uploaded report through the pipeline.
func (p *Pipeline) Process(workflow schema.Workflow, data []byte) (*clean.Result, error) {
	return clean.Process(workflow, data, p.Options)
}

// ProcessWithThreshold runs one report with a per-run datetime parse
// threshold instead of the configured default.
func (p *Pipeline) ProcessWithThreshold(workflow schema.Workflow, data []byte, threshold float64) (*clean.Result, error) {
	opts := p.Options
	opts.DatetimeThreshold = threshold
	return clean.Process(workflow, data, opts)
}

// Dispatch states of a run.
const (
	DispatchNotStarted = "not-started"
	DispatchRunning    = "running"
	DispatchDone       = "done"
)

// Run is one processed report kept in memory for download and dispatch.
type Run struct {
	ID        string       `json:"id"`
	Filename  string       `json:"filename"`
	CreatedAt time.Time    `json:"createdAt"`
	Result    *clean.Result `json:"result"`

	DispatchState   string          `json:"dispatchState"`
	DispatchSummary *engage.Summary `json:"dispatchSummary,omitempty"`
}

// runStore holds completed runs keyed by ID. Runs live for the process
// lifetime; there is no persistence.
type runStore struct {
	mu   sync.Mutex
	runs map[string]*Run
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*Run)}
}

func (s *runStore) add(filename string, result *clean.Result) *Run {
	run := &Run{
		ID:            uuid.NewString(),
		Filename:      filename,
		CreatedAt:     time.Now().UTC(),
		Result:        result,
		DispatchState: DispatchNotStarted,
	}
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
	return run
}

func (s *runStore) get(id string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	return run, ok
}

// beginDispatch transitions a run to the running state. It reports false if
// the run is already dispatching or done.
func (s *runStore) beginDispatch(id string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok || run.DispatchState != DispatchNotStarted {
		return run, false
	}
	run.DispatchState = DispatchRunning
	return run, true
}

func (s *runStore) finishDispatch(id string, summary engage.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		run.DispatchState = DispatchDone
		run.DispatchSummary = &summary
	}
}
