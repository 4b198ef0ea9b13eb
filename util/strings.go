package util

import (
	"strings"
	"unicode"
)

// MaskSecret keeps the first visiblePrefix bytes of s and hides the rest.
// Values no longer than the prefix are fully masked.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}

// SanitizeString trims whitespace and removes control characters, including
// CR and LF, from s.
func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
