package provider

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrUnavailable   = crerr.New("provider unavailable")
	ErrMalformedData = crerr.New("provider returned malformed data")
)

type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindMalformed   Kind = "malformed"
)

// Error is the typed failure every adapter returns for transport or decode problems.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("provider %s %s", e.Provider, e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrMalformedData:
		return e.Kind == KindMalformed
	default:
		return false
	}
}

func Unavailable(provider string, statusCode int, cause error) *Error {
	return &Error{
		Provider:   provider,
		Kind:       KindUnavailable,
		StatusCode: statusCode,
		Retryable:  statusCode == 0 || statusCode == 429 || statusCode >= 500,
		Err:        cause,
	}
}

func Malformed(provider string, cause error) *Error {
	return &Error{
		Provider: provider,
		Kind:     KindMalformed,
		Err:      crerr.Wrap(cause, "decode payload"),
	}
}

// AsError extracts the typed provider error from a wrapped chain.
func AsError(err error) (*Error, bool) {
	var target *Error
	if crerr.As(err, &target) {
		return target, true
	}
	return nil, false
}
