package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeHealthyDuckError = "HEALTHYDUCK_ERROR"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeTimeout          = "TIMEOUT"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapAPIError converts a client error into a coded error.
func WrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var coded *CodedError
	var apiErr *client.APIError
	var netErr net.Error

	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		coded = &CodedError{Code: ErrCodeNotFound, Message: apiErr.Message, Cause: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		coded = &CodedError{Code: ErrCodeTimeout, Message: "request timed out", Cause: err}
	case apiErr != nil:
		coded = &CodedError{Code: ErrCodeHealthyDuckError, Message: apiErr.Message, Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeHealthyDuckError, Message: err.Error(), Cause: err}
	}

	slog.Warn("healthyduck API error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
