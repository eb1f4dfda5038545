package report

import (
	"strings"

	"github.com/plutusedu/webisync/internal/schema"
)

// Section is one labeled block of a Zoom export: a header row plus the data
// rows that follow it. Every row holds exactly len(Header) cells.
type Section struct {
	Label  string
	Header []string
	Rows   [][]string
}

// SplitSections groups raw rows into named sections.
//
// A row with exactly one non-empty cell equal to a known section label opens
// a section; the following row becomes its header. The "Topic" block is
// special: Zoom writes it without a standalone label row, so the first row
// whose leading cell is literally "Topic" is both label and header. Blank
// rows are skipped everywhere. Data rows are trimmed per cell and coerced to
// the header's width. A later section with the same label replaces the
// earlier one.
//
// A wide row that merely begins with "Topic" inside another section's data
// is kept as a data row; only a genuine label row ends a section.
func SplitSections(rows [][]string) map[string]Section {
	sections := make(map[string]Section)

	idx := 0
	for idx < len(rows) {
		stripped := trimCells(rows[idx])

		label, ok := labelOf(stripped)
		var header []string
		switch {
		case ok:
			idx++
			if idx >= len(rows) {
				return sections
			}
			header = trimCells(rows[idx])
			idx++
		case len(stripped) > 0 && stripped[0] == schema.SectionTopic && !hasSection(sections, schema.SectionTopic):
			label = schema.SectionTopic
			header = stripped
			idx++
		default:
			idx++
			continue
		}

		var data [][]string
		for idx < len(rows) {
			next := trimCells(rows[idx])
			if isBlank(next) {
				idx++
				continue
			}
			if _, isLabel := labelOf(next); isLabel {
				break
			}
			data = append(data, fitWidth(next, len(header)))
			idx++
		}
		sections[label] = Section{Label: label, Header: header, Rows: data}
	}
	return sections
}

// labelOf reports whether a trimmed row is a section-label row: exactly one
// non-empty cell whose value is a known label. Returns that label.
func labelOf(cells []string) (string, bool) {
	value := ""
	for _, c := range cells {
		if c == "" {
			continue
		}
		if value != "" {
			return "", false
		}
		value = c
	}
	if value == "" || !schema.SectionNames[value] {
		return "", false
	}
	return value, true
}

func hasSection(sections map[string]Section, label string) bool {
	_, ok := sections[label]
	return ok
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// fitWidth pads or truncates a row to the given width.
func fitWidth(cells []string, width int) []string {
	out := make([]string, width)
	copy(out, cells)
	return out
}

func trimCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// Column returns the values of a named header column across a section's
// rows, or nil when the column is absent.
func (s Section) Column(name string) []string {
	pos := -1
	for i, h := range s.Header {
		if h == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}
	out := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row[pos]
	}
	return out
}

// First returns the value of a named column in the section's first row.
func (s Section) First(name string) string {
	col := s.Column(name)
	if len(col) == 0 {
		return ""
	}
	return col[0]
}
