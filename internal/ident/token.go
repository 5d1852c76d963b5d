package ident

import (
	"fmt"

	"github.com/google/uuid"
)

// TokenLength is the length of a canonical hyphenated token.
const TokenLength = 36

// ValidationError reports a token or kind that failed validation.
// The resolution path filters these out locally; they are never returned
// from a lookup.
type ValidationError struct {
	Token  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Token, e.Reason)
}

// CanonicalToken validates the fixed hyphenated hex shape and returns the
// lower-case form.
//
// uuid.Parse alone also accepts the braced, urn: and dashless forms, so the
// length is pinned first. At 36 characters uuid.Parse insists on dashes at
// offsets 8, 13, 18 and 23 and hex everywhere else.
func CanonicalToken(token string) (string, error) {
	if len(token) != TokenLength {
		return "", &ValidationError{Token: token, Reason: fmt.Sprintf("length %d, want %d", len(token), TokenLength)}
	}
	u, err := uuid.Parse(token)
	if err != nil {
		return "", &ValidationError{Token: token, Reason: err.Error()}
	}
	return u.String(), nil
}

// ValidToken reports whether token has the canonical shape.
func ValidToken(token string) bool {
	_, err := CanonicalToken(token)
	return err == nil
}
