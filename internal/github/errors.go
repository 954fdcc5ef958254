package github

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed GitHub request
type ErrorKind string

const (
	KindRateLimit    ErrorKind = "RATE_LIMIT"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindInvalidToken ErrorKind = "INVALID_TOKEN"
	KindNetwork      ErrorKind = "NETWORK"
	KindUnknown      ErrorKind = "UNKNOWN"
)

// ErrNoData is returned when a payload was fetched but could not be turned
// into a display model. Callers show a not-found state.
var ErrNoData = errors.New("no data")

// APIError is a classified upstream failure
type APIError struct {
	Kind    ErrorKind
	Message string
	Status  int
	ResetAt time.Time // set for RATE_LIMIT when GitHub reports it
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("github %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("github %s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or UNKNOWN
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}
