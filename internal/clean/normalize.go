package clean

import (
	"strings"

	"github.com/plutusedu/webisync/internal/record"
	"github.com/plutusedu/webisync/internal/report"
	"github.com/plutusedu/webisync/internal/schema"
)

// headerIndex maps column names to their first position in a section header.
type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, name := range header {
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

func (h headerIndex) cell(row []string, name string) string {
	pos, ok := h[name]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}

// NormalizeAttendees turns a validated attendee section into normalized
// records, dropping rows without a usable 10-digit phone.
//
// Order of operations matters and is preserved from the SOP: whitespace and
// case cleanup first, then phone normalization, then the email-to-phone
// backfill across the whole section, then the phone validity gate, and only
// then boolean/datetime/minute parsing on the surviving rows (so the parse
// ratios the threshold gate reads are computed over rows that can ship).
func NormalizeAttendees(sec report.Section, stats *ParseStats) []record.AttendeeRecord {
	idx := indexHeader(sec.Header)
	stats.RawRows = len(sec.Rows)

	records := make([]record.AttendeeRecord, 0, len(sec.Rows))
	for _, row := range sec.Rows {
		get := func(name string) string { return NormalizeSpace(idx.cell(row, name)) }

		r := record.AttendeeRecord{
			Attended:        get(schema.ColAttended),
			UserName:        ProperCase(get(schema.ColUserName)),
			FirstName:       ProperCase(get(schema.ColFirstName)),
			LastName:        ProperCase(get(schema.ColLastName)),
			Email:           strings.ToLower(get(schema.ColEmail)),
			Phone:           NormalizePhone(get(schema.ColPhone)),
			RegistrationRaw: blankPlaceholder(get(schema.ColRegistrationTime)),
			ApprovalStatus:  get(schema.ColApprovalStatus),
			JoinTime:        blankPlaceholder(get(schema.ColJoinTime)),
			LeaveTime:       blankPlaceholder(get(schema.ColLeaveTime)),
			TimeInSession:   get(schema.ColTimeInSession),
			IsGuest:         get(schema.ColIsGuest),
			Country:         ProperCase(get(schema.ColCountry)),
			SourceName:      get(schema.ColSourceName),
		}
		records = append(records, r)
	}

	backfillPhones(records)

	kept := records[:0]
	for _, r := range records {
		if len(r.Phone) != 10 {
			stats.InvalidPhoneRows++
			continue
		}
		kept = append(kept, r)
	}
	records = kept

	for i := range records {
		r := &records[i]

		r.AttendedFlag, r.Attended = NormalizeBool(r.Attended)
		r.IsGuestFlag, r.IsGuest = NormalizeBool(r.IsGuest)

		if r.JoinTime != "" {
			stats.JoinAttempted++
		}
		var joinIn, leaveIn, regIn = r.JoinTime, r.LeaveTime, r.RegistrationRaw
		r.JoinAt, r.JoinTime = ParseDateTime(joinIn)
		if r.JoinAt != nil {
			stats.JoinParsed++
		}

		if leaveIn != "" {
			stats.LeaveAttempted++
		}
		r.LeaveAt, r.LeaveTime = ParseDateTime(leaveIn)
		if r.LeaveAt != nil {
			stats.LeaveParsed++
		}

		if regIn != "" {
			stats.RegistrationAttempted++
		}
		r.RegistrationAt, r.RegistrationTime = ParseDateTime(regIn)
		if r.RegistrationAt != nil {
			stats.RegistrationParsed++
		}

		r.SessionMinutes = ParseMinutes(r.TimeInSession)
		r.TimeInSession = FormatMinutes(r.SessionMinutes)

		r.UserID = record.BuildUserID(r.Phone)
	}

	return records
}

// backfillPhones fills empty phones from a same-email map built from rows
// that carry both values; the first phone seen for an email wins.
func backfillPhones(records []record.AttendeeRecord) {
	emailToPhone := make(map[string]string)
	for _, r := range records {
		if r.Email != "" && r.Phone != "" {
			if _, seen := emailToPhone[r.Email]; !seen {
				emailToPhone[r.Email] = r.Phone
			}
		}
	}
	for i := range records {
		if records[i].Phone == "" && records[i].Email != "" {
			if phone, ok := emailToPhone[records[i].Email]; ok {
				records[i].Phone = phone
			}
		}
	}
}

// NormalizeRegistrants turns a validated registration section into
// normalized records. The registrant report has no join/leave columns and no
// email-to-phone backfill; the phone gate applies the same way.
func NormalizeRegistrants(sec report.Section, stats *ParseStats) []record.RegistrantRecord {
	idx := indexHeader(sec.Header)
	stats.RawRows = len(sec.Rows)

	records := make([]record.RegistrantRecord, 0, len(sec.Rows))
	for _, row := range sec.Rows {
		get := func(name string) string { return NormalizeSpace(idx.cell(row, name)) }

		r := record.RegistrantRecord{
			FirstName:          ProperCase(get(schema.ColFirstName)),
			LastName:           ProperCase(get(schema.ColLastName)),
			Email:              strings.ToLower(get(schema.ColEmail)),
			RegistrationRaw:    blankPlaceholder(get(schema.ColRegistrationTime)),
			ApprovalStatus:     get(schema.ColApprovalStatus),
			Phone:              NormalizePhone(get(schema.ColPhone)),
			RegistrationSource: get(schema.ColSourceName),
			AttendanceType:     titleCase(get(schema.ColAttendanceType)),
		}
		records = append(records, r)
	}

	kept := records[:0]
	for _, r := range records {
		if len(r.Phone) != 10 {
			stats.InvalidPhoneRows++
			continue
		}
		kept = append(kept, r)
	}
	records = kept

	for i := range records {
		r := &records[i]

		r.UserName = joinNonEmpty(r.FirstName, r.LastName)

		if r.RegistrationRaw != "" {
			stats.RegistrationAttempted++
		}
		r.RegistrationAt, r.RegistrationTime = ParseDateTime(r.RegistrationRaw)
		if r.RegistrationAt != nil {
			stats.RegistrationParsed++
		}

		r.UserID = record.BuildUserID(r.Phone)
	}

	return records
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
