package util

import (
	"regexp"
	"strings"
)

var sessionCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func IsValidSessionCode(code string) bool {
	return sessionCodeRegex.MatchString(code)
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}

// TrimOptional returns nil for absent or blank values.
func TrimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
