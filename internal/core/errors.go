package core

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies pipeline errors.
type Kind int

const (
	KindConnection Kind = iota + 1
	KindListing
	KindTransientIO
	KindPermanentIO
	KindParse
	KindValidation
	KindPersistence
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindListing:
		return "listing"
	case KindTransientIO:
		return "transient_io"
	case KindPermanentIO:
		return "permanent_io"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

var (
	// ErrDeviceNotFound is returned by DeviceRegistry.FindByID when no device matches.
	ErrDeviceNotFound = stderrors.New("device not found")
	// ErrCycleInProgress is returned when a cycle is requested while another one is still running.
	ErrCycleInProgress = stderrors.New("cycle already in progress")
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError returns a classified error carrying a stack trace.
func NewError(kind Kind, op string, path string, err error) error {
	return errors.WithStack(&Error{Kind: kind, Op: op, Path: path, Err: err})
}

// KindOf returns the kind of the outermost classified error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether the outermost classified error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Escalate turns a transient IO error that survived all retries into a permanent one.
// Other errors are returned unchanged.
func Escalate(err error, path string) error {
	if !IsKind(err, KindTransientIO) {
		return err
	}
	return NewError(KindPermanentIO, "retries exhausted", path, err)
}
