// Package redact turns raw extracted values into display values. Stored raw
// values are never modified; masking happens on every read.
package redact

import (
	"strings"
	"unicode"

	"onboarding-backend/internal/doctypes"
)

const visibleTail = 4

// Redact returns the display value for field on a document of type t.
func Redact(t doctypes.Type, field, raw string) string {
	switch t.Mask(field) {
	case doctypes.MaskAadhaar:
		return Aadhaar(raw)
	case doctypes.MaskPAN:
		return PAN(raw)
	case doctypes.MaskEmail:
		return Email(raw)
	case doctypes.MaskPhone:
		return Phone(raw)
	default:
		return raw
	}
}

// Fields returns a new map with every value redacted for type t.
func Fields(t doctypes.Type, raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = Redact(t, k, v)
	}
	return out
}

// Aadhaar keeps the last four characters. Existing separators are preserved;
// an unseparated number is regrouped in fours from the right.
func Aadhaar(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	runes := []rune(value)

	hasSeparator := false
	significant := 0
	for _, r := range runes {
		if isSignificant(r) {
			significant++
		} else {
			hasSeparator = true
		}
	}
	if significant <= visibleTail {
		return maskSignificant(runes, significant)
	}

	masked := maskSignificant(runes, significant-visibleTail)
	if hasSeparator {
		return masked
	}
	return groupFromRight([]rune(masked), 4)
}

// PAN replaces everything but the trailing four characters with a fixed
// five character prefix.
func PAN(raw string) string {
	value := []rune(strings.TrimSpace(raw))
	if len(value) == 0 {
		return ""
	}
	if len(value) <= visibleTail {
		return strings.Repeat("X", len(value))
	}
	return "XXXXX" + string(value[len(value)-visibleTail:])
}

// Email keeps the first two characters of the local part and the domain.
func Email(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	local, domain := value, ""
	if at := strings.LastIndex(value, "@"); at >= 0 {
		local, domain = value[:at], value[at:]
	}
	localRunes := []rune(local)
	keep := 2
	if len(localRunes) <= keep {
		keep = 0
	}
	return string(localRunes[:keep]) + "***" + domain
}

// Phone masks every digit but the last four, leaving other characters alone.
func Phone(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	runes := []rune(raw)
	digits := 0
	for _, r := range runes {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	toMask := digits - visibleTail
	if digits <= visibleTail {
		toMask = digits
	}
	out := make([]rune, len(runes))
	for i, r := range runes {
		if unicode.IsDigit(r) && toMask > 0 {
			out[i] = 'X'
			toMask--
			continue
		}
		out[i] = r
	}
	return string(out)
}

func isSignificant(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// maskSignificant replaces the first n letters/digits with X.
func maskSignificant(runes []rune, n int) string {
	out := make([]rune, len(runes))
	for i, r := range runes {
		if n > 0 && isSignificant(r) {
			out[i] = 'X'
			n--
			continue
		}
		out[i] = r
	}
	return string(out)
}

func groupFromRight(runes []rune, size int) string {
	var groups []string
	for end := len(runes); end > 0; end -= size {
		start := end - size
		if start < 0 {
			start = 0
		}
		groups = append([]string{string(runes[start:end])}, groups...)
	}
	return strings.Join(groups, " ")
}
