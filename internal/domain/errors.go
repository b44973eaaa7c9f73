package domain

import (
	"fmt"
)

// AppError is the error type surfaced by the core API. StatusCode is a hint
// for the web layer that renders it.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so that errors built with WithError still satisfy
// errors.Is against the predefined values.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	// Input contract violations
	ErrInvalidEvent = &AppError{
		Code:       "INVALID_EVENT",
		Message:    "Invalid event identifier",
		StatusCode: 400,
	}

	ErrUnknownEvent = &AppError{
		Code:       "UNKNOWN_EVENT",
		Message:    "Event not found",
		StatusCode: 404,
	}

	ErrDimensionMismatch = &AppError{
		Code:       "DIMENSION_MISMATCH",
		Message:    "Embedding dimensionality does not match stored encodings",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	// Transient failures
	ErrStorageUnavailable = &AppError{
		Code:       "STORAGE_UNAVAILABLE",
		Message:    "Encoding storage temporarily unavailable",
		StatusCode: 503,
	}

	ErrExtractorUnavailable = &AppError{
		Code:       "EXTRACTOR_UNAVAILABLE",
		Message:    "Face extraction service temporarily unavailable",
		StatusCode: 503,
	}

	ErrNoEncodings = &AppError{
		Code:       "NO_ENCODINGS",
		Message:    "No encodings stored for this event",
		StatusCode: 404,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}
)
