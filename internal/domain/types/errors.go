package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Callers branch on these with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrUnsupportedCombination = errors.New("unsupported combination")
	ErrValidation             = errors.New("validation failed")

	// ErrUnsupportedSplit is the specific combination failure for a
	// (group, split, game type) triple with no backing source.
	ErrUnsupportedSplit = fmt.Errorf("%w: split", ErrUnsupportedCombination)
)

// Error carries the failing operation, a kind and an optional client message.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	switch {
	case e.Msg != "":
		parts = append(parts, e.Msg)
	case e.Kind != nil:
		parts = append(parts, e.Kind.Error())
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind wraps err with op and kind. It returns nil when err is nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with op, keeping its kind. It returns nil when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Errorf returns an error of kind with a client facing message.
func Errorf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf is Errorf with ErrNotFound.
func NotFoundf(op, format string, args ...any) error {
	return Errorf(op, ErrNotFound, format, args...)
}

// Message returns the first client message found in err's chain, falling
// back to the kind name.
func Message(err error) string {
	var found string
	walk(err, func(e *Error) bool {
		if e.Msg != "" {
			found = e.Msg
			return true
		}
		return false
	})
	if found != "" {
		return found
	}
	switch {
	case errors.Is(err, ErrValidation):
		return ErrValidation.Error()
	case errors.Is(err, ErrUnsupportedCombination):
		return ErrUnsupportedCombination.Error()
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	}
	return "internal error"
}

// IsClientError reports whether err should surface as a 400.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrUnsupportedCombination)
}

// IsNotFound reports whether err is of kind ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func walk(err error, visit func(*Error) bool) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok { //nolint:errorlint // walking the tree by hand
		if visit(e) {
			return true
		}
	}
	switch u := err.(type) { //nolint:errorlint // walking the tree by hand
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if walk(inner, visit) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), visit)
	}
	return false
}
