package clean

import (
	"fmt"
	"strings"
	"time"
)

// datePlaceholder is the literal Zoom writes for absent timestamps.
const datePlaceholder = "--"

// displayLayout is the canonical display form every parsed timestamp is
// reformatted to: DD/MM/YYYY hh:mm:ss AM/PM.
const displayLayout = "02/01/2006 03:04:05 PM"

// dayFirstLayouts is the ordered list of accepted input layouts. The locale
// is day-first, so 02/03 means 2 March. Ordering matters: layouts with time
// components are tried before date-only ones, and day-first numeric forms
// before ISO.
var dayFirstLayouts = []string{
	"2/1/2006 3:04:05 PM",
	"2/1/2006 15:04:05",
	"2/1/2006 3:04 PM",
	"2/1/2006 15:04",
	"2-1-2006 3:04:05 PM",
	"2-1-2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"2/1/2006",
	"2-1-2006",
	"2006-01-02",
	"Jan 2, 2006",
}

// ParseDateTime parses a raw cell in the day-first locale. Blank input and
// the "--" placeholder yield (nil, ""). On success the instant is returned
// together with its canonical display form; unparsable input yields
// (nil, "").
func ParseDateTime(s string) (*time.Time, string) {
	s = NormalizeSpace(s)
	if s == "" || s == datePlaceholder {
		return nil, ""
	}
	for _, layout := range dayFirstLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return &t, t.Format(displayLayout)
		}
	}
	return nil, ""
}

// FormatDateTime renders an instant in the canonical display form.
func FormatDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(displayLayout)
}

// FormatWebinarDate renders the webinar date as D/M/YYYY without zero
// padding, the form the downstream sheets expect.
func FormatWebinarDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

// blankPlaceholder normalizes the "--" literal to an empty string.
func blankPlaceholder(s string) string {
	if strings.TrimSpace(s) == datePlaceholder {
		return ""
	}
	return s
}
