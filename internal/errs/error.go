package errs

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAuth              = errors.New("authentication failed")
	ErrNotConfigured     = errors.New("lending service token not configured")
	ErrThrottled         = errors.New("throttled by upstream")
	ErrConflict          = errors.New("record conflict")
	ErrFormatUnavailable = errors.New("no downloadable format available")
	ErrLoanNotInSnapshot = errors.New("loan not present in current sync")
)

// NetworkError marks a transient transport failure, retried up to the
// configured attempts before being surfaced.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsRetryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, ErrThrottled)
}

type ValidationErrorResponse struct {
	Message string `json:"message"`
	Errors  struct {
		AdditionalProperties string `json:"additionalProperties"`
	} `json:"errors"`
}
