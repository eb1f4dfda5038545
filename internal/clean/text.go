package clean

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// NormalizeSpace trims a value and collapses internal whitespace runs to a
// single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ProperCase title-cases each space-separated token: first letter upper, the
// rest lower. Apostrophes and hyphens get no special treatment, so
// "JOHN o'brien" becomes "John O'brien".
func ProperCase(s string) string {
	s = NormalizeSpace(s)
	if s == "" {
		return s
	}
	tokens := strings.Split(s, " ")
	for i, tok := range tokens {
		tokens[i] = capitalize(tok)
	}
	return strings.Join(tokens, " ")
}

func capitalize(tok string) string {
	runes := []rune(strings.ToLower(tok))
	if len(runes) == 0 {
		return tok
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// titleCase additionally capitalizes letters that follow any non-letter, so
// "on-demand" becomes "On-Demand". Used for the Attendance Type column only.
func titleCase(s string) string {
	s = ProperCase(s)
	runes := []rune(s)
	prevLetter := false
	for i, r := range runes {
		if unicode.IsLetter(r) && !prevLetter {
			runes[i] = unicode.ToUpper(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return string(runes)
}

// NormalizePhone strips non-digits and keeps the last 10 digits. Anything
// that does not end up exactly 10 digits long is invalid and becomes empty.
func NormalizePhone(s string) string {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) >= 10 {
		d = d[len(d)-10:]
	}
	if len(d) != 10 {
		return ""
	}
	return d
}

var (
	booleanTrue  = map[string]bool{"yes": true, "true": true, "1": true, "y": true}
	booleanFalse = map[string]bool{"no": true, "false": true, "0": true, "n": true}
)

// NormalizeBool maps a raw cell onto the canonical (flag, display) pair.
// Unrecognized input yields (false, ""): the flag defaults false but the
// empty display string marks the value as unknown rather than an explicit
// "No", and callers that care must check the string.
func NormalizeBool(s string) (bool, string) {
	switch token := strings.ToLower(strings.TrimSpace(s)); {
	case booleanTrue[token]:
		return true, "Yes"
	case booleanFalse[token]:
		return false, "No"
	default:
		return false, ""
	}
}

// ParseMinutes reads a "time in session" cell. Blank, the "--" placeholder
// and non-numeric input all count as zero.
func ParseMinutes(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == datePlaceholder {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatMinutes renders a minute total as the floored integer string.
func FormatMinutes(v float64) string {
	return strconv.Itoa(int(math.Floor(v)))
}
