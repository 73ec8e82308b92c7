package registration

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// minNameLength is counted in runes after trimming.
const minNameLength = 2

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// The result is the uniqueness key for registrations.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeName trims surrounding whitespace and keeps case.
func NormalizeName(raw string) string {
	return strings.TrimSpace(raw)
}

// ValidEmailSyntax is a syntactic check only; no DNS or mailbox lookup.
func ValidEmailSyntax(raw string) bool {
	return emailPattern.MatchString(raw)
}

// ValidName reports whether the trimmed name is long enough.
func ValidName(raw string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(raw)) >= minNameLength
}

// validate checks already-normalized input in the order the form reports
// problems: missing fields, then email syntax, then name length.
func validate(email, name string) error {
	if email == "" || name == "" {
		return ErrMissingField
	}
	if !ValidEmailSyntax(email) {
		return ErrInvalidEmail
	}
	if !ValidName(name) {
		return ErrNameTooShort
	}
	return nil
}
