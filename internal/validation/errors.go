// Package validation carries field-level input errors from the services to
// the HTTP layer.
package validation

import (
	"sort"
	"strings"
)

// Error maps a request field name to a human readable problem.
type Error struct {
	Fields map[string]string
}

func New() *Error {
	return &Error{Fields: make(map[string]string)}
}

// Add records a problem for field. The first problem reported for a field wins.
func (e *Error) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns nil when no field was reported so callers can `return v.Err()`.
func (e *Error) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
