package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// GenerationError is returned when an LLM call fails with a non-retryable
// HTTP error or after exhausting its retry budget. It carries the provider's
// structured error body when one was present.
type GenerationError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Attempts   int
}

func (e *GenerationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s generation failed (status %d, code %s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s generation failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// RateLimited reports whether the error was a provider rate-limit rejection.
func (e *GenerationError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsGenerationError reports whether err is (or wraps) a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
