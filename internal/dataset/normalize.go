package dataset

import (
	"fmt"
	"strings"
	"time"
)

// orderTimeFormats lists the timestamp layouts accepted in order extracts.
// All values are interpreted as UTC; upstream systems do not emit offsets.
var orderTimeFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02T15:04:05.999999",
}

// NormalizeMobile reduces a mobile number to its canonical 10-digit form.
// Non-digit characters are stripped, a leading 91 country code is removed,
// and the result must be 10 digits starting with 6-9. Returns false when
// the value cannot be normalized.
func NormalizeMobile(mobile string) (string, bool) {
	var b strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
		// keep as-is, validated below
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	default:
		return "", false
	}

	if digits[0] < '6' || digits[0] > '9' {
		return "", false
	}
	return digits, true
}

// ParseOrderTime parses an order timestamp string and normalizes it to UTC.
// Fractional seconds are accepted on input but truncated to whole seconds,
// so every stored representation of an order time has second granularity.
func ParseOrderTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range orderTimeFormats {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp: %q", value)
}

// NormalizeRegion maps a raw region label onto the known region set.
// Labels outside the set map to the explicit Unknown bucket instead of
// causing the row to be dropped.
func NormalizeRegion(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return RegionUnknown
	}
	for _, known := range KnownRegions {
		if strings.EqualFold(region, known) {
			return known
		}
	}
	return RegionUnknown
}

// NormalizeName collapses internal whitespace and title-cases each word.
func NormalizeName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
