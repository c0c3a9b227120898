package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	geminiGenerateTimeout = 30 * time.Second
	geminiStreamTimeout   = 60 * time.Second
)

// Gemini wraps the official genai client for one model. It implements both
// Client and StreamClient. Cross-cutting concerns (rate limiting, fallback,
// logging of outcomes) belong to the router, not here.
type Gemini struct {
	cli    *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a Gemini client bound to one model id.
func NewGemini(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Gemini, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		cli:    cli,
		model:  model,
		logger: logger.With(zap.String("provider", "gemini"), zap.String("model", model)),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Model returns the bound model id.
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) generationConfig(temperature float64) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(clampTemperature(temperature, 0, 1))),
		TopK:            genai.Ptr(float32(64)),
		TopP:            genai.Ptr(float32(0.95)),
		MaxOutputTokens: 8192,
	}
}

func contents(prompt string) []*genai.Content {
	return []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}}
}

func (g *Gemini) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiGenerateTimeout)
	defer cancel()

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents(prompt), g.generationConfig(temperature))
	if err != nil {
		g.logger.Warn("Gemini request failed", zap.Error(err))
		if ctx.Err() != nil {
			return "", transportError("gemini", ctx.Err())
		}
		return "", &ProviderError{Provider: "gemini", Message: "AI service error"}
	}

	text, ok := firstCandidateText(resp)
	if !ok {
		g.logger.Warn("Gemini returned an unexpected response envelope")
		return "", &ProviderError{Provider: "gemini", Message: "unexpected AI service response format"}
	}
	return text, nil
}

func (g *Gemini) Stream(ctx context.Context, prompt string, temperature float64, onChunk func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, geminiStreamTimeout)
	defer cancel()

	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents(prompt), g.generationConfig(temperature)) {
		if err != nil {
			g.logger.Warn("Gemini stream failed", zap.Error(err))
			if ctx.Err() != nil {
				return transportError("gemini", ctx.Err())
			}
			return &ProviderError{Provider: "gemini", Message: "AI streaming service error"}
		}
		text, ok := firstCandidateText(resp)
		if !ok || text == "" {
			continue
		}
		if err := onChunk(text); err != nil {
			return err
		}
	}
	return nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", false
	}
	return cand.Content.Parts[0].Text, true
}
