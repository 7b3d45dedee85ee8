package utils

import (
	"strings"
)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeIdentifier normalizes a login identifier. Emails are
// lower-cased; phone numbers are only trimmed.
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return identifier
}

// MaskIdentifier hides most of an email or phone number for log lines.
// Emails keep the first local character and the domain; anything else keeps
// its last visibleChars characters.
func MaskIdentifier(identifier string, visibleChars int) string {
	if at := strings.LastIndex(identifier, "@"); at > 0 {
		return identifier[:1] + strings.Repeat("*", at-1) + identifier[at:]
	}
	if len(identifier) <= visibleChars {
		return strings.Repeat("*", len(identifier))
	}
	hidden := len(identifier) - visibleChars
	return strings.Repeat("*", hidden) + identifier[hidden:]
}
