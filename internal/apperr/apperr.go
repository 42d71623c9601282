package apperr

import (
	"errors"
	"fmt"
)

// Kind tags a failure with the pipeline boundary it came from
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindValidation
	KindPersistence
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is a tagged failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind. An err that already carries the
// same kind is returned unchanged.
func New(kind Kind, op string, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) && existing.Kind == kind {
		return existing
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Transport(op string, err error) *Error   { return New(KindTransport, op, err) }
func Validation(op string, err error) *Error  { return New(KindValidation, op, err) }
func Persistence(op string, err error) *Error { return New(KindPersistence, op, err) }
func Config(op string, err error) *Error      { return New(KindConfig, op, err) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
