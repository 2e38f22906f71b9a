// Package validation collects field problems into a single error that the
// HTTP layer maps to 400.
package validation

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("invalid input")

type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + e.Fields[name]
	}

	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Problems accumulates field errors. The zero value is ready to use.
type Problems struct {
	fields map[string]string
}

// Add records msg for field. The first problem reported for a field wins.
func (p *Problems) Add(field, msg string) {
	if p.fields == nil {
		p.fields = make(map[string]string)
	}

	if _, ok := p.fields[field]; !ok {
		p.fields[field] = msg
	}
}

// Require adds a "is required" problem when value is blank.
func (p *Problems) Require(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		p.Add(field, "is required")
		return false
	}

	return true
}

// Err returns nil when nothing was added.
func (p *Problems) Err() error {
	if len(p.fields) == 0 {
		return nil
	}

	return &Error{Fields: p.fields}
}
