// Package thumberr defines the unified fault taxonomy shared by every
// layer of the cache: one tagged Kind per failure mode, wrapping the
// underlying cause so callers can still errors.Is/errors.As through it.
package thumberr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

const (
	// KindIO covers filesystem or OS-level failures.
	KindIO Kind = "io"
	// KindBadImage covers a source that failed to decode, or decoded to
	// a zero-dimension image.
	KindBadImage Kind = "bad_image"
	// KindProvenance covers a PNG text-chunk read or write failure.
	KindProvenance Kind = "provenance"
	// KindMissingSource covers a source whose metadata could not be read.
	KindMissingSource Kind = "missing_source"
	// KindBadConfig covers an unparseable .thumbnailer descriptor, or
	// one missing its Exec key.
	KindBadConfig Kind = "bad_config"
	// KindNoHelper covers the case where no descriptor matches the MIME
	// type. Never negatively cached.
	KindNoHelper Kind = "no_helper"
	// KindHelperMissing covers a descriptor whose TryExec binary is
	// absent from PATH. Never negatively cached.
	KindHelperMissing Kind = "helper_missing"
	// KindHelperFailed covers a helper that ran and exited nonzero, or
	// produced no usable PNG. Negatively cached.
	KindHelperFailed Kind = "helper_failed"
	// KindNegativeCached covers a fresh fail marker short-circuiting
	// the request.
	KindNegativeCached Kind = "negative_cached"
	// KindCommit covers a failure to atomically rename the temp file
	// into place.
	KindCommit Kind = "commit"
)

// Error is the concrete error type returned by every public operation in
// this module. Cause may be nil for errors with no underlying wrapped
// error (e.g. KindNegativeCached).
type Error struct {
	Kind  Kind
	Path  string // the source or thumbnail path this error concerns, if any
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		if e.Path != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Path)
		}
		return string(e.Kind)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, &thumberr.Error{Kind: K}) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return t.Kind == e.Kind
}

// New wraps cause with kind and an optional path.
func New(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: cause}
}

// Of returns a sentinel usable with errors.Is to test for a given Kind,
// e.g. errors.Is(err, thumberr.Of(thumberr.KindNoHelper)).
func Of(kind Kind) error {
	return &Error{Kind: kind}
}

// Is reports whether err is (or wraps) a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, Of(kind))
}
