package audit

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable audit failure
type Code string

const (
	CodeNoContent          Code = "NO_CONTENT"
	CodeTextTooShort       Code = "TEXT_TOO_SHORT"
	CodeScrapeFailed       Code = "SCRAPE_FAILED"
	CodeAPIKeyMissing      Code = "API_KEY_MISSING"
	CodeInvalidProvider    Code = "INVALID_PROVIDER"
	CodeRateLimit          Code = "RATE_LIMIT"
	CodeAIGenerationFailed Code = "AI_GENERATION_FAILED"
)

// Error is a classified audit failure
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps a code onto the response status
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAPIKeyMissing:
		return http.StatusServiceUnavailable
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeAIGenerationFailed:
		return http.StatusBadGateway
	case CodeNoContent, CodeTextTooShort, CodeScrapeFailed, CodeInvalidProvider:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// CodeOf extracts the code of err, if it is an *Error
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
