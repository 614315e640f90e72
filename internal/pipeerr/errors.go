// Package pipeerr defines the error kinds callers branch on.
package pipeerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindPipeline covers local file problems: missing, empty or unwritable artifacts.
	KindPipeline Kind = iota
	// KindAPIData means the market-data source produced nothing usable.
	KindAPIData
	// KindDatabase wraps any failure of the relational store.
	KindDatabase
	// KindCredentials means object-store credentials are missing or incomplete.
	KindCredentials
)

func (k Kind) String() string {
	switch k {
	case KindPipeline:
		return "pipeline"
	case KindAPIData:
		return "api data"
	case KindDatabase:
		return "database connection"
	case KindCredentials:
		return "credentials"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a tagged pipeline error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
