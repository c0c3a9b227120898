// Package router selects among AI models and providers, executes the
// chosen one with single-hop fallback, and records usage.
package router

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Preferences re-order routing candidates for one request. They never
// reject a candidate outright.
type Preferences struct {
	SpeedPriority   bool
	QualityPriority bool
}

// Result is the outcome of a routed execution.
type Result struct {
	Output    string   `json:"output"`
	ModelUsed string   `json:"model_used"`
	Provider  Provider `json:"provider"`
	TaskType  TaskType `json:"task_type"`
	Fallback  bool     `json:"fallback"`
}

// ConfigurationError means no credentialed provider could serve the
// request. It maps to an HTTP 503.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider configuration error: %s", e.Reason)
}

// ModelInfo is the reporting view of one catalog entry.
type ModelInfo struct {
	Available bool       `json:"available"`
	Provider  Provider   `json:"provider"`
	Quality   int        `json:"quality"`
	Speed     Speed      `json:"speed"`
	Strengths []TaskType `json:"strengths"`
}

// Router owns the immutable model catalog, the live credentials, and the
// usage counters.
type Router struct {
	logger   *zap.Logger
	catalog  []Model
	byName   map[string]*Model
	creds    Credentials
	stats    *UsageStats
	throttle *rate.Limiter

	// Temperature used for routed executions; the simple endpoints carry
	// their own.
	temperature float64
}

// Option configures a Router.
type Option func(*Router)

// WithThrottle caps the rate of outbound provider calls.
func WithThrottle(l *rate.Limiter) Option {
	return func(r *Router) { r.throttle = l }
}

// New creates a Router over the given catalog and credentials.
func New(logger *zap.Logger, catalog []Model, creds Credentials, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		logger:      logger,
		catalog:     catalog,
		byName:      make(map[string]*Model, len(catalog)),
		creds:       creds,
		stats:       NewUsageStats(),
		temperature: 0.7,
	}
	for i := range r.catalog {
		r.byName[r.catalog[i].Name] = &r.catalog[i]
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectModel picks the best catalog entry for a task: filter by strength,
// sort by quality descending, apply preference re-sorts, then take the
// first candidate whose provider is credentialed. When nothing qualifies,
// the designated default model is returned regardless of credentials; a
// configuration problem surfaces at execution, not at selection.
func (r *Router) SelectModel(task TaskType, prefs *Preferences) *Model {
	var candidates []*Model
	for i := range r.catalog {
		if r.catalog[i].StrongAt(task) {
			candidates = append(candidates, &r.catalog[i])
		}
	}
	if len(candidates) == 0 {
		return r.byName[DefaultModelName]
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Quality > candidates[j].Quality
	})

	if prefs != nil {
		if prefs.SpeedPriority {
			sort.SliceStable(candidates, func(i, j int) bool {
				return candidates[i].Speed == SpeedVeryFast && candidates[j].Speed != SpeedVeryFast
			})
		} else if prefs.QualityPriority {
			sort.SliceStable(candidates, func(i, j int) bool {
				return candidates[i].Quality > candidates[j].Quality
			})
		}
	}

	for _, m := range candidates {
		if r.creds.Has(m.Provider) {
			return m
		}
	}
	return r.byName[DefaultModelName]
}

// RouteAndExecute classifies the prompt when no task type was given,
// selects a model, and executes it. A failure of a non-default model is
// retried exactly once against the default model; there is no retry loop
// across the full candidate list.
func (r *Router) RouteAndExecute(ctx context.Context, prompt string, task TaskType, prefs *Preferences) (*Result, error) {
	if task == "" {
		task = Classify(prompt)
	}

	model := r.SelectModel(task, prefs)
	r.logger.Info("Routing task",
		zap.String("task_type", string(task)),
		zap.String("model", model.Name),
		zap.String("provider", string(model.Provider)))

	output, err := r.execute(ctx, model, prompt)
	if err == nil {
		r.stats.Record(model.Name, task)
		return &Result{
			Output:    output,
			ModelUsed: model.Name,
			Provider:  model.Provider,
			TaskType:  task,
			Fallback:  false,
		}, nil
	}

	if model.Name == DefaultModelName {
		return nil, err
	}

	r.logger.Warn("Model execution failed, falling back to default model",
		zap.String("model", model.Name), zap.Error(err))

	fallback := r.byName[DefaultModelName]
	output, ferr := r.execute(ctx, fallback, prompt)
	if ferr != nil {
		return nil, ferr
	}
	r.stats.Record(fallback.Name, task)
	return &Result{
		Output:    output,
		ModelUsed: fallback.Name,
		Provider:  fallback.Provider,
		TaskType:  task,
		Fallback:  true,
	}, nil
}

func (r *Router) execute(ctx context.Context, m *Model, prompt string) (string, error) {
	if !r.creds.Has(m.Provider) {
		return "", &ConfigurationError{Reason: fmt.Sprintf("no credentials for provider %s", m.Provider)}
	}
	if m.Client == nil {
		return "", &ConfigurationError{Reason: fmt.Sprintf("no client bound for model %s", m.Name)}
	}
	if r.throttle != nil {
		if err := r.throttle.Wait(ctx); err != nil {
			return "", fmt.Errorf("outbound throttle: %w", err)
		}
	}
	return m.Client.Generate(ctx, prompt, r.temperature)
}

// AvailableModels reports every catalog entry with its capability profile
// and current credential status.
func (r *Router) AvailableModels() map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(r.catalog))
	for _, m := range r.catalog {
		out[m.Name] = ModelInfo{
			Available: r.creds.Has(m.Provider),
			Provider:  m.Provider,
			Quality:   m.Quality,
			Speed:     m.Speed,
			Strengths: m.Strengths,
		}
	}
	return out
}

// UsageStats returns the raw usage counters.
func (r *Router) UsageStats() map[string]int {
	return r.stats.Snapshot()
}
