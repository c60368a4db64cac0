package zerocore

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind classifies an Error into the taxonomy a CLI front-end maps to exit
// codes. The execution core never invents new kinds at call sites; it picks
// one of these and wraps the underlying cause.
type Kind int

const (
	// KindInvalid covers malformed selections, missing required names,
	// conflicting binding fields, and unsafe working directories.
	KindInvalid Kind = iota
	// KindNotFound covers implementations missing from the store, unknown
	// command names, and executables absent at launch.
	KindNotFound
	// KindArchiveInvalid covers any decoder error from the extraction
	// pipeline.
	KindArchiveInvalid
	// KindDigestMismatch covers a computed manifest digest disagreeing with
	// an expected one.
	KindDigestMismatch
	// KindIO covers filesystem or stream failures.
	KindIO
	// KindNetwork covers download failures surfaced from external
	// collaborators.
	KindNetwork
	// KindCanceled covers cooperative cancellation.
	KindCanceled
	// KindPlatformUnsupported covers an extractor requested on an
	// incompatible OS.
	KindPlatformUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not found"
	case KindArchiveInvalid:
		return "archive invalid"
	case KindDigestMismatch:
		return "digest mismatch"
	case KindIO:
		return "io"
	case KindNetwork:
		return "network"
	case KindCanceled:
		return "canceled"
	case KindPlatformUnsupported:
		return "platform unsupported"
	default:
		return "unknown"
	}
}

// Error is the execution core's sole error type. Every error the core
// raises or re-tags from a backend is one of these so that a front-end can
// switch on Kind without type-asserting against package-private types.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Errorf builds an Error of the given kind, formatting the message like
// fmt.Sprintf and wrapping a trailing %w verb via xerrors so callers can
// xerrors.Is/As through it.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	wrapped := xerrors.Errorf(format, args...)
	return &Error{Kind: kind, Message: wrapped.Error(), Cause: xerrors.Unwrap(wrapped)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
