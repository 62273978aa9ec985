package shared

import (
	"regexp"
	"strings"
)

// Email represents a learner's email address. Comparisons are always
// case-insensitive; Normalize before storing or matching.
type Email string

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid checks whether the email has a plausible shape.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// Normalize returns the trimmed, lowercased form used as the canonical key.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// String returns the string representation.
func (e Email) String() string { return string(e) }

// NewEmail creates a normalized Email, ErrInvalidFormat if malformed.
func NewEmail(s string) (Email, error) {
	e := Email(s).Normalize()
	if e == "" {
		return "", ErrEmptyValue
	}
	if !e.IsValid() {
		return "", ErrInvalidFormat
	}
	return e, nil
}

// GuestUserID is the storage scope used when no account is signed in.
// Progress saved as a guest stays on the device under this namespace.
const GuestUserID = "guest"
