package router

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/contentstudio/aigateway/providers"
)

// ChainEntry binds one configured provider into the fallback chain. Stream
// may be nil for providers without incremental output.
type ChainEntry struct {
	Provider Provider
	Client   providers.Client
	Stream   providers.StreamClient
}

// Chain is the configuration-driven provider fallback used by the simple
// text endpoints: an ordered provider list, tried in sequence, first
// success wins. Unlike the quality-driven router it does not consult the
// model catalog.
type Chain struct {
	logger   *zap.Logger
	entries  []ChainEntry
	throttle *rate.Limiter
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithChainThrottle caps the rate of outbound provider calls.
func WithChainThrottle(l *rate.Limiter) ChainOption {
	return func(c *Chain) { c.throttle = l }
}

// NewChain creates a chain over an already-ordered entry list.
func NewChain(logger *zap.Logger, entries []ChainEntry, opts ...ChainOption) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{logger: logger, entries: entries}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildChain orders configured providers: the primary provider first (the
// chain degrades to Gemini when the named primary has no credentials),
// then every other configured provider when fallback is enabled.
func BuildChain(logger *zap.Logger, primary Provider, fallbackEnabled bool, configured []ChainEntry, opts ...ChainOption) *Chain {
	find := func(p Provider) (ChainEntry, bool) {
		for _, e := range configured {
			if e.Provider == p {
				return e, true
			}
		}
		return ChainEntry{}, false
	}

	var ordered []ChainEntry
	if e, ok := find(primary); ok {
		ordered = append(ordered, e)
	} else if e, ok := find(ProviderGemini); ok && primary != ProviderGemini {
		ordered = append(ordered, e)
	}

	if fallbackEnabled {
		for _, e := range configured {
			if len(ordered) > 0 && e.Provider == ordered[0].Provider {
				continue
			}
			ordered = append(ordered, e)
		}
	}

	return NewChain(logger, ordered, opts...)
}

// Providers returns the chain's provider order, for reporting.
func (c *Chain) Providers() []Provider {
	out := make([]Provider, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Provider)
	}
	return out
}

// Generate tries each provider in order and returns the first success.
// When every provider fails, the last error is returned; an empty chain is
// a configuration error.
func (c *Chain) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	var lastErr error
	for _, e := range c.entries {
		if e.Client == nil {
			continue
		}
		if c.throttle != nil {
			if err := c.throttle.Wait(ctx); err != nil {
				return "", err
			}
		}
		c.logger.Info("Attempting AI request", zap.String("provider", string(e.Provider)))
		out, err := e.Client.Generate(ctx, prompt, temperature)
		if err == nil {
			c.logger.Info("Generated response", zap.String("provider", string(e.Provider)))
			return out, nil
		}
		c.logger.Warn("Provider failed", zap.String("provider", string(e.Provider)), zap.Error(err))
		lastErr = err
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", &ConfigurationError{Reason: "no AI providers configured"}
}

// StreamClients returns the chain's streaming clients in provider order,
// for use by the streaming relay.
func (c *Chain) StreamClients() []providers.StreamClient {
	out := make([]providers.StreamClient, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Stream != nil {
			out = append(out, e.Stream)
		}
	}
	return out
}
