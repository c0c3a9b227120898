// Package relay turns provider token streams into a uniform event feed
// suitable for server-sent events. Providers are tried in order until one
// produces output; once the first chunk has been forwarded the stream is
// committed to that provider and a later failure surfaces as a single
// error event rather than a silent restart.
package relay

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/contentstudio/aigateway/providers"
)

// Event is one frame of the relayed stream. Exactly one field group is
// populated per event: a content chunk, a terminal done marker, or a
// terminal error message.
type Event struct {
	Chunk string `json:"chunk,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// errClientGone marks emit failures so Run can tell a dead downstream
// apart from a provider failure.
var errClientGone = errors.New("stream consumer gone")

// Relay fans a prompt out to an ordered provider list and forwards chunks
// through an emit callback.
type Relay struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{logger: logger}
}

// Run streams the prompt through the first provider that yields output.
// emit is called once per chunk event, then once with a done event. If
// every provider fails before producing anything, or the committed
// provider fails mid-stream, a single error event is emitted instead of
// the done marker. An error returned by emit means the consumer has
// disconnected; Run stops without emitting further events and returns nil.
func (r *Relay) Run(ctx context.Context, clients []providers.StreamClient, prompt string, temperature float64, emit func(Event) error) error {
	if len(clients) == 0 {
		return emitError(emit, "no AI providers configured")
	}

	var lastErr error
	for _, client := range clients {
		started := false
		err := client.Stream(ctx, prompt, temperature, func(chunk string) error {
			started = true
			if err := emit(Event{Chunk: chunk}); err != nil {
				return errClientGone
			}
			return nil
		})
		if err == nil {
			if emitErr := emit(Event{Done: true}); emitErr != nil {
				r.logger.Debug("stream consumer disconnected before done event")
			}
			return nil
		}
		if errors.Is(err, errClientGone) {
			r.logger.Debug("stream consumer disconnected mid-stream",
				zap.String("provider", client.Name()))
			return nil
		}
		if started {
			// The consumer has already seen partial output from this
			// provider; switching now would duplicate content.
			r.logger.Warn("provider failed mid-stream",
				zap.String("provider", client.Name()), zap.Error(err))
			return emitError(emit, "AI provider stream interrupted")
		}
		r.logger.Warn("provider failed before streaming, trying next",
			zap.String("provider", client.Name()), zap.Error(err))
		lastErr = err
	}

	r.logger.Error("all providers failed to start a stream", zap.Error(lastErr))
	return emitError(emit, "all AI providers failed")
}

func emitError(emit func(Event) error, msg string) error {
	// A failed emit means the consumer is gone; there is nobody left to
	// tell about the error either way.
	_ = emit(Event{Error: msg})
	return nil
}
