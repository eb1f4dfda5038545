// Package schema defines the fixed column sets for the Zoom webinar report
// workflows and validates raw report headers against them.
//
// The column lists are contractual: the attendee report must match the SOP
// header exactly (with one optional trailing column), and the registration
// report must match its header exactly. Any deviation is rejected outright;
// there is no partial acceptance or column mapping.
package schema

import (
	"fmt"
	"strings"
)

// Workflow selects which report type a run processes.
type Workflow string

const (
	WorkflowAttendees     Workflow = "attendees"
	WorkflowRegistrations Workflow = "registrations"
)

// ParseWorkflow validates a workflow identifier from a request path or flag.
func ParseWorkflow(s string) (Workflow, error) {
	switch Workflow(strings.ToLower(strings.TrimSpace(s))) {
	case WorkflowAttendees:
		return WorkflowAttendees, nil
	case WorkflowRegistrations:
		return WorkflowRegistrations, nil
	}
	return "", fmt.Errorf("unknown workflow %q (expected %q or %q)", s, WorkflowAttendees, WorkflowRegistrations)
}

// Section labels that may appear in a Zoom export file.
const (
	SectionTopic       = "Topic"
	SectionHosts       = "Host Details"
	SectionPanelists   = "Panelist Details"
	SectionAttendees   = "Attendee Details"
	SectionRegistrants = "Registrant Details"
)

// SectionNames is the closed set of recognized section labels.
var SectionNames = map[string]bool{
	SectionTopic:       true,
	SectionHosts:       true,
	SectionPanelists:   true,
	SectionAttendees:   true,
	SectionRegistrants: true,
}

// Canonical column names shared across schemas.
const (
	ColAttended           = "Attended"
	ColUserName           = "User Name (Original Name)"
	ColFirstName          = "First Name"
	ColLastName           = "Last Name"
	ColEmail              = "Email"
	ColPhone              = "Phone"
	ColRegistrationTime   = "Registration Time"
	ColApprovalStatus     = "Approval Status"
	ColJoinTime           = "Join Time"
	ColLeaveTime          = "Leave Time"
	ColTimeInSession      = "Time in Session (minutes)"
	ColIsGuest            = "Is Guest"
	ColCountry            = "Country/Region Name"
	ColSourceName         = "Source Name"
	ColRegistrationSource = "Registration Source"
	ColAttendanceType     = "Attendance Type"
	ColUserID             = "UserID"
	ColWebinarDate        = "Webinar Date"
	ColCategory           = "Category"
	ColWebinarID          = "Webinar ID"
	ColWebinarName        = "Webinar name"
	ColWebinarConductor   = "Webinar conductor"
)

// RequiredAttendeeColumns is the fixed header the attendee report must open
// with, in order. One extra trailing "Source Name" column is tolerated.
var RequiredAttendeeColumns = []string{
	ColAttended,
	ColUserName,
	ColFirstName,
	ColLastName,
	ColEmail,
	ColPhone,
	ColRegistrationTime,
	ColApprovalStatus,
	ColJoinTime,
	ColLeaveTime,
	ColTimeInSession,
	ColIsGuest,
	ColCountry,
	ColSourceName,
}

// RegistrationRequiredColumns is the exact header of the registration report.
var RegistrationRequiredColumns = []string{
	ColFirstName,
	ColLastName,
	ColEmail,
	ColRegistrationTime,
	ColApprovalStatus,
	ColPhone,
	ColSourceName,
	ColAttendanceType,
}

// CleanAttendeeSchema is the projected output column set for the attendee
// workflow.
var CleanAttendeeSchema = []string{
	ColWebinarDate,
	ColCategory,
	ColWebinarID,
	ColAttended,
	ColUserName,
	ColFirstName,
	ColLastName,
	ColEmail,
	ColPhone,
	ColRegistrationTime,
	ColApprovalStatus,
	ColJoinTime,
	ColLeaveTime,
	ColTimeInSession,
	ColIsGuest,
	ColCountry,
	ColSourceName,
	ColRegistrationSource,
	ColAttendanceType,
	ColUserID,
	ColWebinarName,
	ColWebinarConductor,
}

// RegistrationSchema is the projected output column set for the registration
// workflow.
var RegistrationSchema = []string{
	ColUserName,
	ColFirstName,
	ColLastName,
	ColEmail,
	ColRegistrationTime,
	ColApprovalStatus,
	ColPhone,
	ColRegistrationSource,
	ColAttendanceType,
	ColUserID,
	ColWebinarID,
	ColWebinarName,
	ColWebinarDate,
}

// OutputSchema returns the projected column set for a workflow.
func OutputSchema(w Workflow) []string {
	if w == WorkflowRegistrations {
		return RegistrationSchema
	}
	return CleanAttendeeSchema
}

// ValidateAttendeeHeader checks an attendee section header against the SOP.
// The first 14 columns must match RequiredAttendeeColumns exactly; a 15th
// column is allowed only when it is "Source Name".
func ValidateAttendeeHeader(header []string) error {
	normalized := trimAll(header)
	if len(normalized) < len(RequiredAttendeeColumns) {
		return fmt.Errorf("attendee header has %d columns, expected at least %d", len(normalized), len(RequiredAttendeeColumns))
	}
	for i, want := range RequiredAttendeeColumns {
		if normalized[i] != want {
			return fmt.Errorf("attendee header column %d is %q, expected %q", i+1, normalized[i], want)
		}
	}
	switch len(normalized) {
	case len(RequiredAttendeeColumns):
		return nil
	case len(RequiredAttendeeColumns) + 1:
		if normalized[len(normalized)-1] != ColSourceName {
			return fmt.Errorf("only %q is allowed as optional attendee column, got %q", ColSourceName, normalized[len(normalized)-1])
		}
		return nil
	default:
		return fmt.Errorf("attendee header contains unexpected columns (%d total)", len(normalized))
	}
}

// ValidateRegistrationHeader checks a registration section header, which must
// equal RegistrationRequiredColumns exactly.
func ValidateRegistrationHeader(header []string) error {
	normalized := trimAll(header)
	if len(normalized) != len(RegistrationRequiredColumns) {
		return fmt.Errorf("registration header has %d columns, expected %d", len(normalized), len(RegistrationRequiredColumns))
	}
	for i, want := range RegistrationRequiredColumns {
		if normalized[i] != want {
			return fmt.Errorf("registration header column %d is %q, expected %q", i+1, normalized[i], want)
		}
	}
	return nil
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
