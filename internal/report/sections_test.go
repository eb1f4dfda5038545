package report

import (
	"testing"

	"github.com/plutusedu/webisync/internal/schema"
)

func TestSplitSections(t *testing.T) {
	t.Run("topic header row is its own section", func(t *testing.T) {
		rows := [][]string{
			{"Topic", "Webinar ID", "Actual Start Time"},
			{"ACCA Foundations", "989 8318 8454", "12/03/2024 10:00:00 AM"},
		}
		sections := SplitSections(rows)
		topic, ok := sections[schema.SectionTopic]
		if !ok {
			t.Fatal("Topic section not detected")
		}
		if len(topic.Header) != 3 || topic.Header[0] != "Topic" {
			t.Errorf("unexpected topic header: %v", topic.Header)
		}
		if len(topic.Rows) != 1 || topic.Rows[0][1] != "989 8318 8454" {
			t.Errorf("unexpected topic rows: %v", topic.Rows)
		}
	})

	t.Run("labeled sections with blank separators", func(t *testing.T) {
		rows := [][]string{
			{"Topic", "Webinar ID"},
			{"Intro", "123"},
			{"", ""},
			{"Host Details"},
			{"User Name (Original Name)", "Email"},
			{"priya sharma", "priya@example.com"},
			{"", ""},
			{"Attendee Details"},
			{"Attended", "Email"},
			{"Yes", "a@example.com"},
			{"No", "b@example.com"},
		}
		sections := SplitSections(rows)
		if len(sections) != 3 {
			t.Fatalf("got %d sections, want 3: %v", len(sections), sections)
		}
		att := sections[schema.SectionAttendees]
		if len(att.Rows) != 2 {
			t.Errorf("attendee rows = %d, want 2", len(att.Rows))
		}
		host := sections[schema.SectionHosts]
		if host.First("Email") != "priya@example.com" {
			t.Errorf("host email = %q", host.First("Email"))
		}
	})

	t.Run("label row padded with empty cells still opens a section", func(t *testing.T) {
		rows := [][]string{
			{"Attendee Details", "", "", ""},
			{"Attended", "Email"},
			{"Yes", "a@example.com"},
		}
		sections := SplitSections(rows)
		if _, ok := sections[schema.SectionAttendees]; !ok {
			t.Fatal("padded label row not recognized")
		}
	})

	t.Run("rows coerced to header width", func(t *testing.T) {
		rows := [][]string{
			{"Attendee Details"},
			{"Attended", "Email", "Phone"},
			{"Yes"},
			{"No", "b@example.com", "9876543210", "extra", "cells"},
		}
		att := SplitSections(rows)[schema.SectionAttendees]
		for i, row := range att.Rows {
			if len(row) != 3 {
				t.Errorf("row %d width = %d, want 3", i, len(row))
			}
		}
		if att.Rows[0][1] != "" {
			t.Errorf("short row not padded: %v", att.Rows[0])
		}
		if att.Rows[1][2] != "9876543210" {
			t.Errorf("long row truncated wrongly: %v", att.Rows[1])
		}
	})

	t.Run("wide topic row inside a section stays data", func(t *testing.T) {
		rows := [][]string{
			{"Topic", "Webinar ID"},
			{"Intro", "123"},
			{"Attendee Details"},
			{"Attended", "User Name (Original Name)"},
			{"Yes", "Jane"},
			{"Topic", "this is a chat message"},
			{"No", "John"},
		}
		att := SplitSections(rows)[schema.SectionAttendees]
		if len(att.Rows) != 3 {
			t.Fatalf("attendee rows = %d, want 3 (Topic-like row must stay data)", len(att.Rows))
		}
		if att.Rows[1][0] != "Topic" {
			t.Errorf("expected Topic-like data row preserved, got %v", att.Rows[1])
		}
	})

	t.Run("topic recognized only once", func(t *testing.T) {
		rows := [][]string{
			{"Topic", "Webinar ID"},
			{"First", "1"},
		}
		sections := SplitSections(rows)
		if sections[schema.SectionTopic].Rows[0][0] != "First" {
			t.Errorf("unexpected topic rows: %v", sections[schema.SectionTopic].Rows)
		}
	})

	t.Run("later section with same label wins", func(t *testing.T) {
		rows := [][]string{
			{"Host Details"},
			{"User Name (Original Name)"},
			{"first host"},
			{"Host Details"},
			{"User Name (Original Name)"},
			{"second host"},
		}
		host := SplitSections(rows)[schema.SectionHosts]
		if host.First("User Name (Original Name)") != "second host" {
			t.Errorf("expected later section to replace earlier, got %v", host.Rows)
		}
	})

	t.Run("label at end of file yields nothing", func(t *testing.T) {
		rows := [][]string{
			{"Attendee Details"},
		}
		sections := SplitSections(rows)
		if len(sections) != 0 {
			t.Errorf("expected no sections, got %v", sections)
		}
	})
}

func TestSectionColumn(t *testing.T) {
	s := Section{
		Header: []string{"A", "B"},
		Rows:   [][]string{{"1", "2"}, {"3", "4"}},
	}
	if got := s.Column("B"); len(got) != 2 || got[1] != "4" {
		t.Errorf("Column(B) = %v", got)
	}
	if got := s.Column("missing"); got != nil {
		t.Errorf("Column(missing) = %v, want nil", got)
	}
	if got := s.First("A"); got != "1" {
		t.Errorf("First(A) = %q", got)
	}
	if got := (Section{}).First("A"); got != "" {
		t.Errorf("First on empty section = %q, want empty", got)
	}
}
