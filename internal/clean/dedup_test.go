package clean

import (
	"testing"
	"time"

	"github.com/plutusedu/webisync/internal/record"
)

func ts(t *testing.T, s string) *time.Time {
	t.Helper()
	v, err := time.Parse("2/1/2006 3:04:05 PM", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return &v
}

func TestDeduplicateAttendeesMergesSamePhone(t *testing.T) {
	recs := []record.AttendeeRecord{
		{
			Phone: "9876543210", Email: "a@x.com", UserName: "Pat Singh",
			JoinAt: ts(t, "2/3/2024 10:00:00 AM"), LeaveAt: ts(t, "2/3/2024 10:20:00 AM"),
			SessionMinutes: 20, AttendedFlag: true, Attended: "Yes", IsGuest: "No",
		},
		{
			Phone: "9876543210", Email: "", UserName: "Pat S",
			JoinAt: ts(t, "2/3/2024 10:30:00 AM"), LeaveAt: ts(t, "2/3/2024 10:45:00 AM"),
			SessionMinutes: 15, AttendedFlag: true, Attended: "Yes", IsGuest: "No",
		},
	}

	out := DeduplicateAttendees(recs)
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	r := out[0]
	if r.JoinTime != "02/03/2024 10:00:00 AM" {
		t.Errorf("Join = %q, want earliest join", r.JoinTime)
	}
	if r.LeaveTime != "02/03/2024 10:45:00 AM" {
		t.Errorf("Leave = %q, want latest leave", r.LeaveTime)
	}
	if r.TimeInSession != "35" {
		t.Errorf("TimeInSession = %q, want summed 35", r.TimeInSession)
	}
	if r.UserName != "Pat Singh" {
		t.Errorf("UserName = %q, want value from earliest join", r.UserName)
	}
	if r.Email != "a@x.com" {
		t.Errorf("Email = %q", r.Email)
	}
	if r.UserID != "919876543210" {
		t.Errorf("UserID = %q", r.UserID)
	}
	if r.SourceName != "" {
		t.Errorf("SourceName = %q, want blank for merged group", r.SourceName)
	}
}

func TestDeduplicateAttendeesRegistrationTimeFollowsJoinOrder(t *testing.T) {
	// The earlier-joining row carries the later registration timestamp; the
	// merged record must still take its value, not the earliest instant.
	recs := []record.AttendeeRecord{
		{
			Phone:  "9876543210",
			JoinAt: ts(t, "2/3/2024 10:30:00 AM"),
			RegistrationAt: ts(t, "1/3/2024 9:00:00 AM"), RegistrationTime: "01/03/2024 09:00:00 AM",
		},
		{
			Phone:  "9876543210",
			JoinAt: ts(t, "2/3/2024 10:00:00 AM"),
			RegistrationAt: ts(t, "2/3/2024 9:30:00 AM"), RegistrationTime: "02/03/2024 09:30:00 AM",
		},
	}

	out := DeduplicateAttendees(recs)
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].RegistrationTime != "02/03/2024 09:30:00 AM" {
		t.Errorf("RegistrationTime = %q, want value from earliest-joining row", out[0].RegistrationTime)
	}

	// A blank registration on the earlier-joining row falls through to the
	// next row's value.
	recs[1].RegistrationAt, recs[1].RegistrationTime = nil, ""
	out = DeduplicateAttendees(recs)
	if out[0].RegistrationTime != "01/03/2024 09:00:00 AM" {
		t.Errorf("RegistrationTime = %q, want next non-blank value", out[0].RegistrationTime)
	}
}

func TestDeduplicateAttendeesGroupOrderAndFallbacks(t *testing.T) {
	recs := []record.AttendeeRecord{
		{Phone: "9111111111", UserName: "A"},
		{Phone: "", Email: "x@x.com", UserName: "B"},
		{Phone: "9111111111", UserName: "A2"},
		{Phone: "", Email: "", UserName: "C"},
		{Phone: "", Email: "x@x.com", UserName: "B2"},
		{Phone: "", Email: "", UserName: "D"},
	}

	out := DeduplicateAttendees(recs)
	got := make([]string, len(out))
	for i, r := range out {
		got[i] = r.UserName
	}
	want := []string{"A", "B", "C", "D"}
	if len(got) != len(want) {
		t.Fatalf("groups = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDeduplicateAttendeesGuestMerge(t *testing.T) {
	cases := []struct {
		name   string
		guests []string
		flags  []bool
		want   string
	}{
		{"any yes", []string{"No", "Yes"}, []bool{false, true}, "Yes"},
		{"explicit no beats unknown", []string{"", "No"}, []bool{false, false}, "No"},
		{"all unknown stays blank", []string{"", ""}, []bool{false, false}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs := make([]record.AttendeeRecord, len(tc.guests))
			for i := range tc.guests {
				recs[i] = record.AttendeeRecord{
					Phone:       "9876543210",
					IsGuest:     tc.guests[i],
					IsGuestFlag: tc.flags[i],
				}
			}
			out := DeduplicateAttendees(recs)
			if len(out) != 1 {
				t.Fatalf("expected 1 record, got %d", len(out))
			}
			if out[0].IsGuest != tc.want {
				t.Errorf("IsGuest = %q, want %q", out[0].IsGuest, tc.want)
			}
		})
	}
}

func TestDeduplicateAttendeesIdempotent(t *testing.T) {
	recs := []record.AttendeeRecord{
		{Phone: "9876543210", JoinAt: ts(t, "2/3/2024 10:00:00 AM"), SessionMinutes: 20, AttendedFlag: true},
		{Phone: "9876543210", JoinAt: ts(t, "2/3/2024 10:30:00 AM"), SessionMinutes: 15, AttendedFlag: true},
	}
	once := DeduplicateAttendees(recs)
	twice := DeduplicateAttendees(once)
	if len(twice) != 1 {
		t.Fatalf("expected 1 record, got %d", len(twice))
	}
	if twice[0].TimeInSession != once[0].TimeInSession || twice[0].JoinTime != once[0].JoinTime {
		t.Errorf("second pass changed output: %+v vs %+v", twice[0], once[0])
	}
}

func TestDeduplicateRegistrants(t *testing.T) {
	recs := []record.RegistrantRecord{
		{Phone: "9876543210", UserName: "Late Entry", RegistrationAt: ts(t, "2/3/2024 11:00:00 AM")},
		{Phone: "9876543210", UserName: "Early Entry", RegistrationAt: ts(t, "1/3/2024 9:00:00 AM"), RegistrationSource: "newsletter"},
		{Phone: "", Email: "solo@x.com", UserName: "Solo"},
	}

	out := DeduplicateRegistrants(recs)
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	r := out[0]
	if r.UserName != "Early Entry" {
		t.Errorf("UserName = %q, want value from earliest registration", r.UserName)
	}
	if r.RegistrationTime != "01/03/2024 09:00:00 AM" {
		t.Errorf("RegistrationTime = %q, want earliest", r.RegistrationTime)
	}
	if r.RegistrationSource != "newsletter" {
		t.Errorf("RegistrationSource = %q", r.RegistrationSource)
	}
	if out[1].UserName != "Solo" {
		t.Errorf("second group = %q", out[1].UserName)
	}
}
