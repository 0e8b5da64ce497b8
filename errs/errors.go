// Package errs defines the error taxonomy shared by the deployment engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

const (
	ParseError       Kind = "PARSE_ERROR"       // manifest missing, malformed or incomplete
	AccessError      Kind = "ACCESS_ERROR"      // root directory missing or not writable
	IOError          Kind = "IO_ERROR"          // copy, move, delete or extract failure
	ArchiveError     Kind = "ARCHIVE_ERROR"     // corrupt or unreadable zip structure
	CyclicDependency Kind = "CYCLIC_DEPENDENCY" // dependency declarations form a loop
	Aborted          Kind = "ABORTED"           // cooperative cancellation
	Locked           Kind = "LOCKED"            // structural edit while the queue runs
	NotFound         Kind = "NOT_FOUND"
)

// Error is a structured engine error. Its message names the operation,
// the subject path and the underlying cause so it can be displayed as is.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if msg == "" {
		return string(e.Kind)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Newf creates an error of the given kind with a formatted cause.
func Newf(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// Parse creates a ParseError.
func Parse(op, path string, err error) *Error { return New(ParseError, op, path, err) }

// Access creates an AccessError.
func Access(op, path string, err error) *Error { return New(AccessError, op, path, err) }

// IO creates an IOError.
func IO(op, path string, err error) *Error { return New(IOError, op, path, err) }

// Archive creates an ArchiveError.
func Archive(op, path string, err error) *Error { return New(ArchiveError, op, path, err) }

// Abort creates an Aborted error.
func Abort(op, path string) *Error {
	return New(Aborted, op, path, errors.New("operation aborted"))
}

// Cycle creates a CyclicDependency error listing the offending chain.
func Cycle(chain []string) *Error {
	return Newf(CyclicDependency, "resolve dependencies", "", "dependency cycle: %v", chain)
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
