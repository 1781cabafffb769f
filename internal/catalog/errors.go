package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema matches every *ValidationError.
	ErrSchema   = errors.New("catalog: payload does not match schema")
	ErrNotFound = errors.New("catalog: not found")
)

// ValidationError reports a payload that lacks required fields.
type ValidationError struct {
	Resource string
	URL      string
	Missing  []string
	// Reason is set when the payload could not be decoded at all.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("catalog: invalid %s from %s: %s", e.Resource, e.URL, e.Reason)
	}
	return fmt.Sprintf("catalog: invalid %s from %s: missing %s", e.Resource, e.URL, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrSchema
}
