package clean

import (
	"sort"
	"time"

	"github.com/plutusedu/webisync/internal/record"
)

// DeduplicateAttendees collapses rows that belong to the same person into one
// canonical record. Identity is the phone number; rows without one fall back
// to email grouping and finally to standing alone. Group order follows first
// appearance in the input, so output order is deterministic.
func DeduplicateAttendees(records []record.AttendeeRecord) []record.AttendeeRecord {
	groups := groupAttendees(records)
	out := make([]record.AttendeeRecord, 0, len(groups))
	for _, g := range groups {
		out = append(out, mergeAttendees(g))
	}
	return out
}

func groupAttendees(records []record.AttendeeRecord) [][]record.AttendeeRecord {
	type bucket struct {
		order int
		rows  []record.AttendeeRecord
	}
	byPhone := map[string]*bucket{}
	byEmail := map[string]*bucket{}
	var singles []*bucket
	next := 0

	for _, r := range records {
		switch {
		case r.Phone != "":
			b, ok := byPhone[r.Phone]
			if !ok {
				b = &bucket{order: next}
				next++
				byPhone[r.Phone] = b
			}
			b.rows = append(b.rows, r)
		case r.Email != "":
			b, ok := byEmail[r.Email]
			if !ok {
				b = &bucket{order: next}
				next++
				byEmail[r.Email] = b
			}
			b.rows = append(b.rows, r)
		default:
			b := &bucket{order: next, rows: []record.AttendeeRecord{r}}
			next++
			singles = append(singles, b)
		}
	}

	all := make([]*bucket, 0, len(byPhone)+len(byEmail)+len(singles))
	for _, b := range byPhone {
		all = append(all, b)
	}
	for _, b := range byEmail {
		all = append(all, b)
	}
	all = append(all, singles...)
	sort.Slice(all, func(i, j int) bool { return all[i].order < all[j].order })

	groups := make([][]record.AttendeeRecord, len(all))
	for i, b := range all {
		groups[i] = b.rows
	}
	return groups
}

// mergeAttendees builds the canonical record for one identity group.
//
// Display fields, registration time included, take the first non-blank value
// with rows ordered by join time ascending (unparsed times sort last, ties
// keep input order). Session minutes sum across the group, join takes the
// earliest instant, leave the latest, and the boolean columns take "Yes" if
// any row says yes.
func mergeAttendees(group []record.AttendeeRecord) record.AttendeeRecord {
	rows := make([]record.AttendeeRecord, len(group))
	copy(rows, group)
	sort.SliceStable(rows, func(i, j int) bool {
		return timeLess(rows[i].JoinAt, rows[j].JoinAt)
	})

	out := record.AttendeeRecord{
		UserName:       firstNonBlank(rows, func(r record.AttendeeRecord) string { return r.UserName }),
		FirstName:      firstNonBlank(rows, func(r record.AttendeeRecord) string { return r.FirstName }),
		LastName:       firstNonBlank(rows, func(r record.AttendeeRecord) string { return r.LastName }),
		Email:          firstNonBlank(rows, func(r record.AttendeeRecord) string { return r.Email }),
		Phone:          firstNonBlank(rows, func(r record.AttendeeRecord) string { return r.Phone }),
		ApprovalStatus: firstNonBlank(rows, func(r record.AttendeeRecord) string { return r.ApprovalStatus }),
		Country:        firstNonBlank(rows, func(r record.AttendeeRecord) string { return r.Country }),
	}

	for _, r := range rows {
		out.SessionMinutes += r.SessionMinutes
		if r.AttendedFlag {
			out.AttendedFlag = true
		}
		if r.JoinAt != nil && (out.JoinAt == nil || r.JoinAt.Before(*out.JoinAt)) {
			out.JoinAt = r.JoinAt
		}
		if r.LeaveAt != nil && (out.LeaveAt == nil || r.LeaveAt.After(*out.LeaveAt)) {
			out.LeaveAt = r.LeaveAt
		}
	}

	out.TimeInSession = FormatMinutes(out.SessionMinutes)
	out.JoinTime = FormatDateTime(out.JoinAt)
	out.LeaveTime = FormatDateTime(out.LeaveAt)

	if out.AttendedFlag {
		out.Attended = "Yes"
	} else {
		out.Attended = "No"
	}

	// Is Guest merges three-valued: any yes wins, an explicit no beats
	// unknown, all-unknown stays blank.
	out.IsGuest = ""
	for _, r := range rows {
		if r.IsGuestFlag {
			out.IsGuestFlag = true
			out.IsGuest = "Yes"
			break
		}
		if r.IsGuest == "No" {
			out.IsGuest = "No"
		}
	}

	// Registration time follows the other display fields: first non-blank in
	// join order, with the raw input standing in for an unparsed value.
	for _, r := range rows {
		v := r.RegistrationTime
		if v == "" {
			v = r.RegistrationRaw
		}
		if v != "" {
			out.RegistrationTime = v
			out.RegistrationAt = r.RegistrationAt
			break
		}
	}

	// Merged rows can disagree on acquisition source, so it is dropped
	// rather than guessed.
	if len(rows) > 1 {
		out.SourceName = ""
	} else {
		out.SourceName = rows[0].SourceName
	}

	out.UserID = record.BuildUserID(out.Phone)
	return out
}

// DeduplicateRegistrants collapses registration rows the same way, ordered by
// registration time instead of join time.
func DeduplicateRegistrants(records []record.RegistrantRecord) []record.RegistrantRecord {
	type bucket struct {
		order int
		rows  []record.RegistrantRecord
	}
	byPhone := map[string]*bucket{}
	byEmail := map[string]*bucket{}
	var all []*bucket
	next := 0

	for _, r := range records {
		var key map[string]*bucket
		var id string
		switch {
		case r.Phone != "":
			key, id = byPhone, r.Phone
		case r.Email != "":
			key, id = byEmail, r.Email
		default:
			all = append(all, &bucket{order: next, rows: []record.RegistrantRecord{r}})
			next++
			continue
		}
		b, ok := key[id]
		if !ok {
			b = &bucket{order: next}
			next++
			key[id] = b
			all = append(all, b)
		}
		b.rows = append(b.rows, r)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].order < all[j].order })

	out := make([]record.RegistrantRecord, 0, len(all))
	for _, b := range all {
		out = append(out, mergeRegistrants(b.rows))
	}
	return out
}

func mergeRegistrants(group []record.RegistrantRecord) record.RegistrantRecord {
	rows := make([]record.RegistrantRecord, len(group))
	copy(rows, group)
	sort.SliceStable(rows, func(i, j int) bool {
		return timeLess(rows[i].RegistrationAt, rows[j].RegistrationAt)
	})

	out := rows[0]
	pick := func(get func(record.RegistrantRecord) string) string {
		return firstNonBlankReg(rows, get)
	}
	out.UserName = pick(func(r record.RegistrantRecord) string { return r.UserName })
	out.FirstName = pick(func(r record.RegistrantRecord) string { return r.FirstName })
	out.LastName = pick(func(r record.RegistrantRecord) string { return r.LastName })
	out.Email = pick(func(r record.RegistrantRecord) string { return r.Email })
	out.Phone = pick(func(r record.RegistrantRecord) string { return r.Phone })
	out.ApprovalStatus = pick(func(r record.RegistrantRecord) string { return r.ApprovalStatus })
	out.RegistrationSource = pick(func(r record.RegistrantRecord) string { return r.RegistrationSource })
	out.AttendanceType = pick(func(r record.RegistrantRecord) string { return r.AttendanceType })

	out.RegistrationAt = nil
	for _, r := range rows {
		if r.RegistrationAt != nil && (out.RegistrationAt == nil || r.RegistrationAt.Before(*out.RegistrationAt)) {
			out.RegistrationAt = r.RegistrationAt
		}
	}
	if out.RegistrationAt != nil {
		out.RegistrationTime = FormatDateTime(out.RegistrationAt)
	} else {
		out.RegistrationTime = pick(func(r record.RegistrantRecord) string { return r.RegistrationRaw })
	}

	out.UserID = record.BuildUserID(out.Phone)
	return out
}

// timeLess orders instants ascending with nil (unparsed) values last.
func timeLess(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}

func firstNonBlank(rows []record.AttendeeRecord, get func(record.AttendeeRecord) string) string {
	for _, r := range rows {
		if v := get(r); v != "" {
			return v
		}
	}
	return ""
}

func firstNonBlankReg(rows []record.RegistrantRecord, get func(record.RegistrantRecord) string) string {
	for _, r := range rows {
		if v := get(r); v != "" {
			return v
		}
	}
	return ""
}
