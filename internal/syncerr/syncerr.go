// Package syncerr defines the error taxonomy shared by all schemasync
// components. Every error leaving a component carries a Kind so callers can
// distinguish configuration mistakes from database failures without string
// matching.
package syncerr

import (
	"github.com/cockroachdb/errors"
)

// Kind classifies an error.
type Kind int

const (
	// KindUnknown is the zero value for errors that were not classified.
	KindUnknown Kind = iota
	// KindConfig covers invalid or missing configuration.
	KindConfig
	// KindDatabase covers connectivity and query failures.
	KindDatabase
	// KindAnalysis covers schema introspection failures.
	KindAnalysis
	// KindMigration covers migration generation and application failures.
	KindMigration
	// KindTypeMapping covers unresolvable source field types.
	KindTypeMapping
	// KindValidation covers caller contract violations on model input.
	KindValidation
	// KindSyntax covers malformed external model descriptors.
	KindSyntax
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindDatabase:
		return "database"
	case KindAnalysis:
		return "analysis"
	case KindMigration:
		return "migration"
	case KindTypeMapping:
		return "type mapping"
	case KindValidation:
		return "validation"
	case KindSyntax:
		return "syntax"
	}
	return "unknown"
}

// kindError attaches a Kind to a wrapped error. It participates in the
// errors.Unwrap chain so cockroachdb/errors formatting is preserved.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.kind.String() + " error: " + e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// New returns a new error of the given kind.
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, err: errors.New(msg)}
}

// Newf returns a new formatted error of the given kind.
func Newf(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, err: errors.Newf(format, args...)}
}

// Wrap annotates err with a message and a kind. A nil err returns nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrap(err, msg)}
}

// Wrapf annotates err with a formatted message and a kind. A nil err returns nil.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrapf(err, format, args...)}
}

// KindOf returns the kind of the outermost classified error in the chain,
// or KindUnknown when no classification is present.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if ke, ok := err.(*kindError); ok && ke.kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
