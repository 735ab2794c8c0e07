package completion

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// ErrMalformedResponse marks a response without generated text
var ErrMalformedResponse = errors.New("malformed completion response")

// CompletionError is returned for any failed completion call
type CompletionError struct {
	Provider   string
	Model      string
	StatusCode int // HTTP status when the API answered, 0 otherwise
	Cause      error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion with %s failed (status %d): %v", e.Model, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("completion with %s failed: %v", e.Model, e.Cause)
}

func (e *CompletionError) Unwrap() error {
	return e.Cause
}

// IsCompletionError reports whether err is or wraps a *CompletionError
func IsCompletionError(err error) bool {
	var ce *CompletionError
	return errors.As(err, &ce)
}

func statusCodeOf(err error) int {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode
	}
	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode
	}
	return 0
}
