package engage

import (
	"github.com/plutusedu/webisync/internal/record"
)

// Event names the platform tracks journeys on. Renaming one breaks live
// campaigns, so these are fixed rather than configurable.
const (
	EventRegistered = "Webinar Registered"
	EventAttended   = "Webinar Attended"
)

// Record is one dispatchable person: a user upsert plus the ordered events
// to fire for them. Events keep declaration order on the wire.
type Record struct {
	Index      int
	Identifier string
	User       UserPayload
	Events     []EventPayload
}

// BuildAttendeeDispatch converts canonical attendee records into dispatch
// records. Every attendee gets a registration event followed by an
// attendance event; the dispatcher guarantees that order is preserved.
func BuildAttendeeDispatch(records []record.AttendeeRecord) []Record {
	out := make([]Record, 0, len(records))
	for i, r := range records {
		user := UserPayload{
			UserID:        r.UserID,
			Email:         r.Email,
			FirstName:     r.FirstName,
			Phone:         phoneE164(r.UserID),
			WhatsappOptIn: true,
			EmailOptIn:    true,
		}
		if r.UserName != "" {
			user.Attributes = map[string]string{"originalName": r.UserName}
		}

		registered := EventPayload{
			UserID:    r.UserID,
			EventName: EventRegistered,
			EventData: eventData(map[string]string{
				"webinarName":      r.WebinarName,
				"webinarId":        r.WebinarID,
				"webinarDate":      r.WebinarDate,
				"category":         r.Category,
				"conductor":        r.WebinarConductor,
				"registrationTime": r.RegistrationTime,
				"approvalStatus":   r.ApprovalStatus,
			}),
		}
		attended := EventPayload{
			UserID:    r.UserID,
			EventName: EventAttended,
			EventData: eventData(map[string]string{
				"webinarName":    r.WebinarName,
				"webinarId":      r.WebinarID,
				"webinarDate":    r.WebinarDate,
				"category":       r.Category,
				"conductor":      r.WebinarConductor,
				"attended":       r.Attended,
				"joinTime":       r.JoinTime,
				"leaveTime":      r.LeaveTime,
				"sessionMinutes": r.TimeInSession,
				"country":        r.Country,
			}),
		}

		out = append(out, Record{
			Index:      i,
			Identifier: r.Identifier(),
			User:       user,
			Events:     []EventPayload{registered, attended},
		})
	}
	return out
}

// BuildRegistrantDispatch converts canonical registrant records into
// dispatch records carrying a single registration event.
func BuildRegistrantDispatch(records []record.RegistrantRecord) []Record {
	out := make([]Record, 0, len(records))
	for i, r := range records {
		user := UserPayload{
			UserID:        r.UserID,
			Email:         r.Email,
			FirstName:     r.FirstName,
			Phone:         phoneE164(r.UserID),
			WhatsappOptIn: true,
			EmailOptIn:    true,
		}
		if r.UserName != "" {
			user.Attributes = map[string]string{"originalName": r.UserName}
		}

		registered := EventPayload{
			UserID:    r.UserID,
			EventName: EventRegistered,
			EventData: eventData(map[string]string{
				"webinarName":        r.WebinarName,
				"webinarId":          r.WebinarID,
				"webinarDate":        r.WebinarDate,
				"registrationTime":   r.RegistrationTime,
				"registrationSource": r.RegistrationSource,
				"attendanceType":     r.AttendanceType,
				"approvalStatus":     r.ApprovalStatus,
			}),
		}

		out = append(out, Record{
			Index:      i,
			Identifier: r.Identifier(),
			User:       user,
			Events:     []EventPayload{registered},
		})
	}
	return out
}

// eventData drops empty values so the wire payload omits them.
func eventData(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// phoneE164 renders a derived UserID (country code + 10 digits) as a phone
// number the API accepts.
func phoneE164(userID string) string {
	if userID == "" {
		return ""
	}
	return "+" + userID
}
