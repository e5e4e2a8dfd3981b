package util

import (
	"regexp"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// phoneRegex accepts the display formats the dashboard produces, e.g.
// "+55 (11) 99876-5432", as well as bare digit strings with country code.
var phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9\s()\-]{7,19}$`)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
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

func IsValidPhoneNumber(s string) bool {
	if s == "" {
		return false
	}
	return phoneRegex.MatchString(s)
}
