package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// TransientError marks a failure that may succeed if the turn is retried.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError marks a failure that retrying will not fix (bad key, bad request).
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

func NewFatalError(err error) error {
	return &FatalError{err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransientError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransientError(err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
			return NewTransientError(err)
		default:
			return NewFatalError(err)
		}
	}
	return NewTransientError(err)
}
