package record

import "strings"

// CountryCodePrefix is prepended to every derived UserID. The marketing
// account is India-only, so the code is fixed rather than configured.
const CountryCodePrefix = "91"

// BuildUserID derives the stable external identifier from a phone value:
// strip non-digits, keep the last 10, left-pad with zeros to 10, prefix the
// country code. Empty or digit-free input yields an empty ID.
func BuildUserID(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if len(d) > 10 {
		d = d[len(d)-10:]
	}
	for len(d) < 10 {
		d = "0" + d
	}
	return CountryCodePrefix + d
}
