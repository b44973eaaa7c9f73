package deepface

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
	ErrUnexpectedDimension = errors.New("unexpected embedding dimension from deepface")
)

// StatusError is returned for any response with status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// NoFace reports whether the service rejected the image because detection
// found nothing, which DeepFace signals with a 400 when enforce_detection is on.
func (e *StatusError) NoFace() bool {
	return e.StatusCode == 400 && strings.Contains(strings.ToLower(e.Body), "face could not be detected")
}

// isClientError checks if the error is a 4xx client error
func isClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}
