// Package providers contains one adapter per external generative-AI
// vendor. Each client issues a single request or stream to its vendor,
// normalizes the result, and surfaces failures as typed errors. Vendor
// response bodies are logged for diagnostics but never leaked to callers.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Client generates one complete text response for a prompt.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// StreamClient produces a response incrementally. onChunk is invoked once
// per text chunk in arrival order; returning an error from onChunk stops
// the stream.
type StreamClient interface {
	Name() string
	Stream(ctx context.Context, prompt string, temperature float64, onChunk func(string) error) error
}

// ImageKind declares how an image result payload is represented.
type ImageKind string

const (
	// ImageURL means the payload is a fetchable URL.
	ImageURL ImageKind = "url"
	// ImageBase64 means the payload is an inline base64 data URI.
	ImageBase64 ImageKind = "base64"
)

// ImageRequest carries the normalized parameters for one image generation.
type ImageRequest struct {
	Prompt  string
	Width   int
	Height  int
	Quality string
}

// ImageResult is the outcome of an image generation call.
type ImageResult struct {
	Payload  string
	Kind     ImageKind
	Provider string
}

// ImageClient generates one image per call.
type ImageClient interface {
	Name() string
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

var (
	// ErrTimeout indicates a provider call exceeded its fixed deadline.
	ErrTimeout = errors.New("ai provider timeout")
	// ErrUnavailable indicates a connection-level failure reaching a
	// provider.
	ErrUnavailable = errors.New("ai provider unavailable")
)

// ProviderError reports a non-success response from a vendor API. Message
// is generic; the raw vendor body is only written to the log.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// transportError classifies a failed outbound call into the timeout or
// unavailable bucket.
func transportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", provider, ErrTimeout)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%s: %w", provider, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", provider, ErrUnavailable)
}

// clampTemperature forces t into a vendor's accepted range.
func clampTemperature(t, low, high float64) float64 {
	if t < low {
		return low
	}
	if t > high {
		return high
	}
	return t
}
