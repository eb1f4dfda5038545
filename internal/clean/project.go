package clean

import (
	"encoding/csv"
	"io"

	"github.com/plutusedu/webisync/internal/record"
	"github.com/plutusedu/webisync/internal/schema"
)

// ProjectAttendees renders canonical attendee records as rows in the fixed
// output column order and verifies the output invariants hold.
func ProjectAttendees(records []record.AttendeeRecord) ([][]string, error) {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		if r.UserID == "" {
			r.UserID = record.BuildUserID(r.Phone)
		}
		row := []string{
			r.WebinarDate,
			r.Category,
			r.WebinarID,
			r.Attended,
			r.UserName,
			r.FirstName,
			r.LastName,
			r.Email,
			r.Phone,
			r.RegistrationTime,
			r.ApprovalStatus,
			r.JoinTime,
			r.LeaveTime,
			r.TimeInSession,
			r.IsGuest,
			r.Country,
			r.SourceName,
			r.RegistrationSource,
			r.AttendanceType,
			r.UserID,
			r.WebinarName,
			r.WebinarConductor,
		}
		if len(row) != len(schema.CleanAttendeeSchema) {
			return nil, validationErrorf("attendee row %d has %d columns, schema expects %d", i, len(row), len(schema.CleanAttendeeSchema))
		}
		if r.Attended != "Yes" && r.Attended != "No" {
			return nil, validationErrorf("attendee row %d has non-canonical Attended value %q", i, r.Attended)
		}
		if r.IsGuest != "" && r.IsGuest != "Yes" && r.IsGuest != "No" {
			return nil, validationErrorf("attendee row %d has non-canonical Is Guest value %q", i, r.IsGuest)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ProjectRegistrants renders canonical registrant records in the fixed
// registration output column order.
func ProjectRegistrants(records []record.RegistrantRecord) ([][]string, error) {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		if r.UserID == "" {
			r.UserID = record.BuildUserID(r.Phone)
		}
		row := []string{
			r.UserName,
			r.FirstName,
			r.LastName,
			r.Email,
			r.RegistrationTime,
			r.ApprovalStatus,
			r.Phone,
			r.RegistrationSource,
			r.AttendanceType,
			r.UserID,
			r.WebinarID,
			r.WebinarName,
			r.WebinarDate,
		}
		if len(row) != len(schema.RegistrationSchema) {
			return nil, validationErrorf("registrant row %d has %d columns, schema expects %d", i, len(row), len(schema.RegistrationSchema))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV writes the header and projected rows for a workflow.
func WriteCSV(w io.Writer, workflow schema.Workflow, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.OutputSchema(workflow)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
