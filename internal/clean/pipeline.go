package clean

import (
	"fmt"
	"io"

	"github.com/plutusedu/webisync/internal/record"
	"github.com/plutusedu/webisync/internal/report"
	"github.com/plutusedu/webisync/internal/schema"
)

// Options configures a pipeline run.
type Options struct {
	Enrichment EnrichmentConfig

	// DatetimeThreshold is the minimum join/leave parse success ratio an
	// attendee file must reach to be accepted.
	DatetimeThreshold float64
}

// Result is the outcome of one accepted pipeline run.
type Result struct {
	Workflow schema.Workflow        `json:"workflow"`
	Metadata record.WebinarMetadata `json:"metadata"`
	Stats    ParseStats             `json:"stats"`
	Rows     [][]string             `json:"-"`
	Logs     []string               `json:"logs,omitempty"`

	Attendees   []record.AttendeeRecord  `json:"-"`
	Registrants []record.RegistrantRecord `json:"-"`
}

// WriteCSV writes the run's projected rows with the workflow's header.
func (r *Result) WriteCSV(w io.Writer) error {
	return WriteCSV(w, r.Workflow, r.Rows)
}

// Process runs the full pipeline for a workflow over one raw export file.
func Process(workflow schema.Workflow, data []byte, opts Options) (*Result, error) {
	if workflow == schema.WorkflowRegistrations {
		return ProcessRegistrations(data, opts)
	}
	return ProcessAttendees(data, opts)
}

// ProcessAttendees runs split, validate, normalize, threshold-gate, dedup,
// enrich and project for the attendee workflow.
func ProcessAttendees(data []byte, opts Options) (*Result, error) {
	rows, err := report.DecodeRows(data)
	if err != nil {
		return nil, formatErrorf("unreadable file: %v", err)
	}
	sections := report.SplitSections(rows)

	sec, ok := sections[schema.SectionAttendees]
	if !ok {
		return nil, formatErrorf("file has no %q section", schema.SectionAttendees)
	}
	if err := schema.ValidateAttendeeHeader(sec.Header); err != nil {
		return nil, formatErrorf("%v", err)
	}

	res := &Result{Workflow: schema.WorkflowAttendees}
	records := NormalizeAttendees(sec, &res.Stats)

	if err := checkThreshold(res.Stats, opts.DatetimeThreshold); err != nil {
		return nil, err
	}

	records = DeduplicateAttendees(records)
	res.Stats.DedupRecords = len(records)

	res.Metadata = ResolveMetadata(sections, opts.Enrichment)
	StampAttendees(records, res.Metadata)
	res.logMeta()

	projected, err := ProjectAttendees(records)
	if err != nil {
		return nil, err
	}
	res.Attendees = records
	res.Rows = projected
	return res, nil
}

// ProcessRegistrations runs the registration workflow. The registration
// export sometimes labels its people block "Attendee Details", so that
// section is accepted as a fallback. No threshold gate applies: the report
// has a single timestamp column and a blank one is routine.
func ProcessRegistrations(data []byte, opts Options) (*Result, error) {
	rows, err := report.DecodeRows(data)
	if err != nil {
		return nil, formatErrorf("unreadable file: %v", err)
	}
	sections := report.SplitSections(rows)

	sec, ok := sections[schema.SectionRegistrants]
	if !ok {
		sec, ok = sections[schema.SectionAttendees]
	}
	if !ok {
		return nil, formatErrorf("file has no %q or %q section", schema.SectionRegistrants, schema.SectionAttendees)
	}
	if err := schema.ValidateRegistrationHeader(sec.Header); err != nil {
		return nil, formatErrorf("%v", err)
	}

	res := &Result{Workflow: schema.WorkflowRegistrations}
	records := NormalizeRegistrants(sec, &res.Stats)

	records = DeduplicateRegistrants(records)
	res.Stats.DedupRecords = len(records)

	res.Metadata = ResolveMetadata(sections, opts.Enrichment)
	StampRegistrants(records, res.Metadata)
	res.logMeta()

	projected, err := ProjectRegistrants(records)
	if err != nil {
		return nil, err
	}
	res.Registrants = records
	res.Rows = projected
	return res, nil
}

func checkThreshold(stats ParseStats, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if r := stats.JoinRatio(); r < threshold {
		return &ThresholdError{Field: "join time", Ratio: r, Threshold: threshold}
	}
	if r := stats.LeaveRatio(); r < threshold {
		return &ThresholdError{Field: "leave time", Ratio: r, Threshold: threshold}
	}
	return nil
}

func (r *Result) logMeta() {
	r.Logs = append(r.Logs,
		fmt.Sprintf("kept %d of %d rows (%d invalid phone)", r.Stats.DedupRecords, r.Stats.RawRows, r.Stats.InvalidPhoneRows))
	if r.Metadata.Category == "" && r.Metadata.Topic != "" {
		r.Logs = append(r.Logs, fmt.Sprintf("no category rule matched topic %q", r.Metadata.Topic))
	}
	if r.Metadata.ConductorWarning != "" {
		r.Logs = append(r.Logs, r.Metadata.ConductorWarning)
	}
}
