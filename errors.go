package magicimage

import (
	"errors"
	"fmt"
	"time"
)

// UnknownErrorMessage is shown when a failure carries no usable message.
const UnknownErrorMessage = "an unknown error occurred while communicating with the API"

var (
	// ErrNoImageProduced is returned when the model answered but no part
	// carried inline image data.
	ErrNoImageProduced = errors.New("no image was produced, try a different prompt")

	// ErrStorageNotConfigured is returned when storage operations are attempted
	// without a configured storage backend.
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// ErrorKind classifies a GenerationError.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindEmptyPrompt
	KindNoImage
	KindTransport
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindEmptyPrompt:
		return "empty_prompt"
	case KindNoImage:
		return "no_image"
	case KindTransport:
		return "transport"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// GenerationError is the single failure type returned by Generator.
// Its message is what the UI shows to the user.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil || e.Err.Error() == "" {
		return UnknownErrorMessage
	}
	return "failed to generate image: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the same input may succeed.
// An empty prompt must be changed first.
func (e *GenerationError) Retryable() bool {
	return e.Kind != KindEmptyPrompt
}

// newGenerationError classifies err and wraps it.
func newGenerationError(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	kind := KindUnknown
	var transportErr *TransportError
	switch {
	case errors.Is(err, ErrEmptyPrompt):
		kind = KindEmptyPrompt
	case errors.Is(err, ErrNoImageProduced):
		kind = KindNoImage
	case IsRateLimitError(err):
		kind = KindRateLimited
	case errors.As(err, &transportErr):
		kind = KindTransport
	}
	return &GenerationError{Kind: kind, Err: err}
}

// TransportError wraps a network or remote-service failure.
type TransportError struct {
	Model string
	Err   error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("request to %s failed", e.Model)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitError is returned when a rate limit is hit, either locally or by
// the remote service.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
	Model      string
	Err        error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s limit, retry after %v",
		e.Model, e.LimitType, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsRetryable reports whether err is worth resubmitting unchanged.
func IsRetryable(err error) bool {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Retryable()
	}
	return !errors.Is(err, ErrEmptyPrompt)
}
