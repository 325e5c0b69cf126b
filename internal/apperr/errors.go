// Package apperr defines the error taxonomy shared across the journal core.
//
// Callers branch on error kind with errors.Is / errors.As rather than
// matching message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a mutation or read whose target document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a refused create; the existing file is untouched.
	ErrAlreadyExists = errors.New("already exists")
	// ErrIndexMissing means no index artifact exists and automatic rebuilds
	// are disabled, so the caller must rebuild explicitly.
	ErrIndexMissing = errors.New("index missing")
)

// ParseError reports a malformed metadata header. During a rebuild it is
// recovered locally (the file is skipped); when raised for the specific file
// a caller asked to mutate, it is fatal to that operation.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse: %s", e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports invalid caller input: a bad date literal, a status
// outside the kind's enum, a missing required field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// AmbiguousAnchorError reports a section-insertion anchor that matched more
// than one heading. Lines holds the 1-based body line of every match so the
// caller can disambiguate; nothing is written.
type AmbiguousAnchorError struct {
	Heading string
	Lines   []int
}

func (e *AmbiguousAnchorError) Error() string {
	locs := make([]string, len(e.Lines))
	for i, n := range e.Lines {
		locs[i] = fmt.Sprintf("line %d", n)
	}
	return fmt.Sprintf("heading %q matches %d locations (%s)", e.Heading, len(e.Lines), strings.Join(locs, ", "))
}
