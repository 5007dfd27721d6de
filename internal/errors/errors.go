// Package errors defines the failure kinds produced while locating or
// extracting the native library, and the single code the external caller sees.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a lookup failure.
type Kind string

const (
	// KindEnvironmentUnavailable means the primary directory is missing.
	// It never reaches the caller; the locator falls through to extraction.
	KindEnvironmentUnavailable Kind = "environment-unavailable"
	// KindNotFound is the terminal failure after every step was tried.
	KindNotFound Kind = "not-found-after-search"
	// KindStagingDirCreate means a per-ABI staging directory could not be created.
	KindStagingDirCreate Kind = "staging-directory-create-failed"
	// KindExtractionIO covers archive open and entry copy failures.
	KindExtractionIO Kind = "extraction-io-failure"
)

// CodeLibNotFound is the fixed code reported to the external caller for
// every failure.
const CodeLibNotFound = "LIB_NOT_FOUND"

// Error is a lookup failure with its kind and the path involved.
type Error struct {
	Kind Kind
	Op   string // step or operation that failed
	Path string
	Msg  string
	Err  error // underlying cause, may be nil
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound})
// works regardless of message or path.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrEnvironmentUnavailable = &Error{Kind: KindEnvironmentUnavailable}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrStagingDirCreate       = &Error{Kind: KindStagingDirCreate}
	ErrExtractionIO           = &Error{Kind: KindExtractionIO}
)

// New creates an Error of the given kind.
func New(kind Kind, op, path, msg string) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Msg: msg}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, op, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Code returns the external code for err. Every failure maps to
// CodeLibNotFound; nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	return CodeLibNotFound
}

// Message returns the human-readable message of the outermost *Error in
// err's chain, without the wrapped causes, or err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}

// Standard library passthrough so callers need only one errors import.

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
