package models

import (
	"errors"
	"strings"
)

const actionRefSep = "|"

// ErrMalformedActionRef is returned when a button value cannot be parsed.
var ErrMalformedActionRef = errors.New("malformed action reference")

// ActionRef is the context a button carries in its value:
// issuingUser|objectID[|target].
type ActionRef struct {
	UserID   string
	ObjectID string
	Target   string
}

// String encodes the reference for a button value.
func (r ActionRef) String() string {
	parts := []string{r.UserID, r.ObjectID}
	if r.Target != "" {
		parts = append(parts, r.Target)
	}
	return strings.Join(parts, actionRefSep)
}

// IssuedBy reports whether userID is the user that issued the button.
func (r ActionRef) IssuedBy(userID string) bool {
	return r.UserID != "" && r.UserID == userID
}

// ParseActionRef decodes a button value. User and object id are required.
func ParseActionRef(value string) (ActionRef, error) {
	parts := strings.Split(value, actionRefSep)
	if len(parts) < 2 || len(parts) > 3 {
		return ActionRef{}, ErrMalformedActionRef
	}
	ref := ActionRef{
		UserID:   strings.TrimSpace(parts[0]),
		ObjectID: strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		ref.Target = strings.TrimSpace(parts[2])
	}
	if ref.UserID == "" || ref.ObjectID == "" {
		return ActionRef{}, ErrMalformedActionRef
	}
	return ref, nil
}
