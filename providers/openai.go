package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
)

const (
	chatGenerateTimeout = 30 * time.Second
	chatStreamTimeout   = 60 * time.Second

	// Max buffered size of one SSE event from a provider stream.
	sseEventBufferSize = 1 << 16
)

// ChatCompletions calls an OpenAI-style chat completions endpoint. Groq,
// Mistral and Grok all speak this dialect; only the endpoint, model id,
// temperature range and optional system message differ.
type ChatCompletions struct {
	name      string
	endpoint  string
	apiKey    string
	model     string
	system    string
	maxTemp   float64
	maxTokens int
	http      *http.Client
	logger    *zap.Logger
}

// NewGroq creates a client for Groq's chat completions API.
func NewGroq(apiKey, model string, logger *zap.Logger) *ChatCompletions {
	return newChatCompletions("groq", "https://api.groq.com/openai/v1/chat/completions", apiKey, model, "", 2.0, 2048, logger)
}

// NewMistral creates a client for Mistral's chat completions API.
func NewMistral(apiKey, model string, logger *zap.Logger) *ChatCompletions {
	return newChatCompletions("mistral", "https://api.mistral.ai/v1/chat/completions", apiKey, model, "", 1.0, 2048, logger)
}

// NewGrok creates a client for the xAI Grok chat completions API.
func NewGrok(apiKey string, logger *zap.Logger) *ChatCompletions {
	const system = "You are Grok, a helpful AI assistant for the Content Studio application."
	return newChatCompletions("grok", "https://api.x.ai/v1/chat/completions", apiKey, "grok-beta", system, 2.0, 8192, logger)
}

func newChatCompletions(name, endpoint, apiKey, model, system string, maxTemp float64, maxTokens int, logger *zap.Logger) *ChatCompletions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatCompletions{
		name:      name,
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		system:    system,
		maxTemp:   maxTemp,
		maxTokens: maxTokens,
		http:      &http.Client{},
		logger:    logger.With(zap.String("provider", name), zap.String("model", model)),
	}
}

func (c *ChatCompletions) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *ChatCompletions) messages(prompt string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if c.system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: c.system})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt})
}

func (c *ChatCompletions) post(ctx context.Context, prompt string, temperature float64, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    c.messages(prompt),
		Temperature: clampTemperature(temperature, 0, c.maxTemp),
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Provider request failed", zap.Error(err))
		return nil, transportError(c.name, err)
	}
	return resp, nil
}

func (c *ChatCompletions) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, chatGenerateTimeout)
	defer cancel()

	resp, err := c.post(ctx, prompt, temperature, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Provider returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return "", &ProviderError{Provider: c.name, Status: resp.StatusCode, Message: "AI service error"}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn("Failed to decode provider response", zap.Error(err))
		return "", &ProviderError{Provider: c.name, Message: "unexpected AI service response format"}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &ProviderError{Provider: c.name, Message: "unexpected AI service response format"}
	}
	return parsed.Choices[0].Message.Content, nil
}

// Stream issues a streaming chat completion and forwards delta chunks in
// arrival order.
func (c *ChatCompletions) Stream(ctx context.Context, prompt string, temperature float64, onChunk func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, chatStreamTimeout)
	defer cancel()

	resp, err := c.post(ctx, prompt, temperature, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Provider stream returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return &ProviderError{Provider: c.name, Status: resp.StatusCode, Message: "AI streaming service error"}
	}

	reader := sse.NewEventStreamReader(resp.Body, sseEventBufferSize)
	for {
		event, err := reader.ReadEvent()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return transportError(c.name, ctx.Err())
			}
			c.logger.Warn("Provider stream read failed", zap.Error(err))
			return transportError(c.name, err)
		}

		for _, line := range bytes.Split(event, []byte("\n")) {
			if !bytes.HasPrefix(line, []byte("data:")) {
				continue
			}
			data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
			if len(data) == 0 {
				continue
			}
			if bytes.Equal(data, []byte("[DONE]")) {
				return nil
			}

			var parsed chatResponse
			if err := json.Unmarshal(data, &parsed); err != nil {
				// Providers interleave keepalives and malformed
				// fragments; skip and keep reading.
				continue
			}
			if len(parsed.Choices) == 0 {
				continue
			}
			chunk := parsed.Choices[0].Delta.Content
			if chunk == "" {
				continue
			}
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
	}
}
