package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxTemplateLength  = 4096
	MaxGroupNameLength = 255
	MaxOutgoingLength  = 4096
	MaxParseLength     = 20000
)

var (
	groupIDPattern = regexp.MustCompile(`^[0-9]+(-[0-9]+)?@g\.us$`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{6,20}$`)
)

// ValidGroupID checks for a WhatsApp group JID such as 120363000000@g.us
func ValidGroupID(s string) bool {
	return groupIDPattern.MatchString(s)
}

// ValidPhone accepts digits with an optional leading +
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

// TruncateString cuts s to at most maxRunes runes
func TruncateString(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}

// ValidateLength checks the rune count is within bounds
func ValidateLength(s string, min, max int) bool {
	l := utf8.RuneCountInString(s)
	return l >= min && l <= max
}
