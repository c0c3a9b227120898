package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	geminiImageTimeout = 90 * time.Second
	grokImageTimeout   = 120 * time.Second
	falImageTimeout    = 60 * time.Second
)

// PollinationsImage builds fetchable Pollinations URLs. No network call is
// made; the image is rendered when the URL is fetched.
type PollinationsImage struct{}

func NewPollinationsImage() *PollinationsImage { return &PollinationsImage{} }

func (p *PollinationsImage) Name() string { return "pollinations" }

func (p *PollinationsImage) GenerateImage(_ context.Context, req ImageRequest) (*ImageResult, error) {
	description := req.Prompt
	if req.Quality == "high" || req.Quality == "ultra" {
		description += ", highly detailed, professional quality, sharp focus"
	}
	u := fmt.Sprintf("https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&enhance=true",
		url.QueryEscape(description), req.Width, req.Height)
	return &ImageResult{Payload: u, Kind: ImageURL, Provider: "pollinations"}, nil
}

// GeminiImage calls the Imagen prediction endpoint and returns the image
// as an inline base64 data URI.
type GeminiImage struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

func NewGeminiImage(apiKey string, logger *zap.Logger) *GeminiImage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiImage{
		endpoint: "https://us-central1-aiplatform.googleapis.com/v1/publishers/google/models/imagen-3.0-generate-001:predict",
		apiKey:   apiKey,
		http:     &http.Client{},
		logger:   logger.With(zap.String("provider", "gemini-image")),
	}
}

func (g *GeminiImage) Name() string { return "gemini" }

func (g *GeminiImage) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiImageTimeout)
	defer cancel()

	payload := map[string]any{
		"prompt":              req.Prompt + ", high quality, detailed, professional photography",
		"number_of_images":    1,
		"aspect_ratio":        fmt.Sprintf("%d:%d", req.Width, req.Height),
		"safety_filter_level": "block_only_high",
		"language":            "en",
	}

	data, err := g.postJSON(ctx, g.endpoint+"?key="+g.apiKey, payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
		} `json:"predictions"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Predictions) == 0 || parsed.Predictions[0].BytesBase64Encoded == "" {
		g.logger.Warn("Gemini image response had an unexpected envelope")
		return nil, &ProviderError{Provider: "gemini", Message: "unexpected image service response format"}
	}

	return &ImageResult{
		Payload:  "data:image/png;base64," + parsed.Predictions[0].BytesBase64Encoded,
		Kind:     ImageBase64,
		Provider: "gemini",
	}, nil
}

func (g *GeminiImage) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	return postJSON(ctx, g.http, g.logger, "gemini", endpoint, payload, nil)
}

// GrokImage calls the xAI image generation API. The vendor may answer with
// either a URL or inline base64 data; the result declares which.
type GrokImage struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

func NewGrokImage(apiKey string, logger *zap.Logger) *GrokImage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrokImage{
		endpoint: "https://api.x.ai/v1/images/generations",
		apiKey:   apiKey,
		http:     &http.Client{},
		logger:   logger.With(zap.String("provider", "grok-image")),
	}
}

func (g *GrokImage) Name() string { return "grok" }

func (g *GrokImage) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, grokImageTimeout)
	defer cancel()

	payload := map[string]any{
		"prompt": req.Prompt + ", ultra high quality, photorealistic, 8k, professional",
		"width":  req.Width,
		"height": req.Height,
	}
	headers := map[string]string{"Authorization": "Bearer " + g.apiKey}

	data, err := postJSON(ctx, g.http, g.logger, "grok", g.endpoint, payload, headers)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Data) == 0 {
		g.logger.Warn("Grok image response had an unexpected envelope")
		return nil, &ProviderError{Provider: "grok", Message: "unexpected image service response format"}
	}

	if u := parsed.Data[0].URL; u != "" {
		return &ImageResult{Payload: u, Kind: ImageURL, Provider: "grok"}, nil
	}
	if b64 := parsed.Data[0].B64JSON; b64 != "" {
		payload := b64
		if !strings.HasPrefix(payload, "data:") {
			payload = "data:image/png;base64," + payload
		}
		return &ImageResult{Payload: payload, Kind: ImageBase64, Provider: "grok"}, nil
	}
	return nil, &ProviderError{Provider: "grok", Message: "unexpected image service response format"}
}

// FalImage calls the fal.ai flux pipeline.
type FalImage struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

func NewFalImage(apiKey string, logger *zap.Logger) *FalImage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FalImage{
		endpoint: "https://api.fal.ai/v1/pipelines/fal-ai/flux-pro/v1/run",
		apiKey:   apiKey,
		http:     &http.Client{},
		logger:   logger.With(zap.String("provider", "fal")),
	}
}

func (f *FalImage) Name() string { return "fal" }

func (f *FalImage) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, falImageTimeout)
	defer cancel()

	payload := map[string]any{
		"input": map[string]any{
			"prompt":     req.Prompt,
			"image_size": fmt.Sprintf("%dx%d", req.Width, req.Height),
		},
	}
	headers := map[string]string{"Authorization": "Key " + f.apiKey}

	data, err := postJSON(ctx, f.http, f.logger, "fal", f.endpoint, payload, headers)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
		Image struct {
			URL string `json:"url"`
		} `json:"image"`
		Output struct {
			ImageURL string `json:"image_url"`
		} `json:"output"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		f.logger.Warn("Fal image response had an unexpected envelope")
		return nil, &ProviderError{Provider: "fal", Message: "unexpected image service response format"}
	}

	u := parsed.Output.ImageURL
	if len(parsed.Images) > 0 && parsed.Images[0].URL != "" {
		u = parsed.Images[0].URL
	} else if parsed.Image.URL != "" {
		u = parsed.Image.URL
	}
	if u == "" {
		f.logger.Warn("Unable to locate image URL in fal response")
		return nil, &ProviderError{Provider: "fal", Message: "unexpected image service response format"}
	}
	return &ImageResult{Payload: u, Kind: ImageURL, Provider: "fal"}, nil
}

// postJSON issues one JSON POST and returns the response body on 2xx, or a
// classified provider failure otherwise.
func postJSON(ctx context.Context, client *http.Client, logger *zap.Logger, provider, endpoint string, payload any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("Image provider request failed", zap.Error(err))
		return nil, transportError(provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, transportError(provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error("Image provider returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data[:min(len(data), 4096)]))
		return nil, &ProviderError{Provider: provider, Status: resp.StatusCode, Message: "image service error"}
	}
	return data, nil
}
