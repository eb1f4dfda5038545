// Package record holds the typed person-records the pipeline produces.
//
// The original ad-hoc row maps are replaced with one tagged struct per
// workflow so the fixed output schemas are checkable at compile time. The
// string fields carry the display values that end up in the projected CSV;
// the unexported-looking *At/flag fields carry parsed values the
// deduplication step aggregates on.
package record

import "time"

// AttendeeRecord is one normalized (and, after dedup, canonical) attendee row.
type AttendeeRecord struct {
	Attended     string
	AttendedFlag bool

	UserName  string
	FirstName string
	LastName  string
	Email     string
	Phone     string

	RegistrationTime string
	RegistrationRaw  string
	RegistrationAt   *time.Time

	ApprovalStatus string

	JoinTime string
	JoinAt   *time.Time

	LeaveTime string
	LeaveAt   *time.Time

	// TimeInSession is the display value; SessionMinutes keeps the numeric
	// value so grouped rows sum before flooring.
	TimeInSession  string
	SessionMinutes float64

	// IsGuest is three-valued: "Yes", "No", or "" for unknown. The flag is
	// false for both "No" and unknown, so consumers must check the string.
	IsGuest     string
	IsGuestFlag bool

	Country            string
	SourceName         string
	RegistrationSource string
	AttendanceType     string

	UserID string

	WebinarDate      string
	Category         string
	WebinarID        string
	WebinarName      string
	WebinarConductor string
}

// Identifier returns the best available identity for reporting dispatch
// failures: phone, else email, else the derived UserID.
func (r AttendeeRecord) Identifier() string {
	if r.Phone != "" {
		return r.Phone
	}
	if r.Email != "" {
		return r.Email
	}
	return r.UserID
}

// RegistrantRecord is one normalized (and, after dedup, canonical)
// registration row.
type RegistrantRecord struct {
	UserName  string
	FirstName string
	LastName  string
	Email     string
	Phone     string

	RegistrationTime string
	RegistrationRaw  string
	RegistrationAt   *time.Time

	ApprovalStatus     string
	RegistrationSource string
	AttendanceType     string

	UserID string

	WebinarID   string
	WebinarName string
	WebinarDate string
}

// Identifier returns the best available identity for reporting dispatch
// failures: phone, else email, else the derived UserID.
func (r RegistrantRecord) Identifier() string {
	if r.Phone != "" {
		return r.Phone
	}
	if r.Email != "" {
		return r.Email
	}
	return r.UserID
}

// WebinarMetadata is the per-file webinar context resolved from the Topic,
// Host and Panelist sections plus configuration.
type WebinarMetadata struct {
	WebinarID        string `json:"webinarId"`
	Topic            string `json:"topic"`
	StartTime        string `json:"startTime"`
	WebinarDate      string `json:"webinarDate"`
	Category         string `json:"category"`
	Conductor        string `json:"conductor"`
	ConductorWarning string `json:"conductorWarning,omitempty"`
}
