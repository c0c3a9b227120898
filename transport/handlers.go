// Package transport exposes the gateway over HTTP: JSON endpoints for the
// content tools, server-sent events for their streaming variants, and the
// model-catalog and smart-routing surface.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/contentstudio/aigateway/guard"
	"github.com/contentstudio/aigateway/providers"
	"github.com/contentstudio/aigateway/ratelimit"
	"github.com/contentstudio/aigateway/relay"
	"github.com/contentstudio/aigateway/router"
)

// Input length caps per request field.
const (
	maxTextLength        = 10000
	maxTopicLength       = 500
	maxInstructionLength = 500
	maxMessageLength     = 2000
	maxImagePromptLength = 1000
	maxStyleLength       = 500
	maxGamedevLength     = 2000
)

const defaultTemperature = 0.7

// Options carries the dependencies of the HTTP surface. Every field is
// injected so tests can substitute stubs and control the clock.
type Options struct {
	Limiter        *ratelimit.Limiter
	RateLimit      int
	RateWindow     time.Duration
	Chain          *router.Chain
	SmartRouter    *router.Router
	Images         *router.ImageRouter
	Relay          *relay.Relay
	StreamClients  []providers.StreamClient
	AllowedOrigins []string
}

// Server holds the handler state for all gateway endpoints.
type Server struct {
	logger  *zap.Logger
	limiter *ratelimit.Limiter
	limit   int
	window  time.Duration
	chain   *router.Chain
	smart   *router.Router
	images  *router.ImageRouter
	relay   *relay.Relay
	streams []providers.StreamClient
	origins map[string]bool
}

func NewServer(logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		origins[o] = true
	}
	return &Server{
		logger:  logger,
		limiter: opts.Limiter,
		limit:   opts.RateLimit,
		window:  opts.RateWindow,
		chain:   opts.Chain,
		smart:   opts.SmartRouter,
		images:  opts.Images,
		relay:   opts.Relay,
		streams: opts.StreamClients,
		origins: origins,
	}
}

// Handler builds the routing table and wraps it with the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/summarize/stream", s.handleSummarizeStream)
	mux.HandleFunc("POST /api/generate-ideas", s.handleIdeas)
	mux.HandleFunc("POST /api/generate-ideas/stream", s.handleIdeasStream)
	mux.HandleFunc("POST /api/refine-content", s.handleRefine)
	mux.HandleFunc("POST /api/refine-content/stream", s.handleRefineStream)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)

	mux.HandleFunc("POST /api/generate-image", s.handleGenerateImage)

	mux.HandleFunc("POST /api/gamedev/{kind}", s.handleGamedev)
	mux.HandleFunc("POST /api/gamedev/{kind}/stream", s.handleGamedevStream)

	mux.HandleFunc("POST /api/smart-route", s.handleSmartRoute)
	mux.HandleFunc("GET /api/available-models", s.handleAvailableModels)

	var h http.Handler = mux
	h = s.rateLimitMiddleware(h)
	h = s.corsMiddleware(h)
	h = s.requestLogMiddleware(h)
	return h
}

// ---- Request/response shapes ----

type summarizeRequest struct {
	Text string `json:"text"`
}

type ideasRequest struct {
	Topic string `json:"topic"`
}

type refineRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

type chatRequest struct {
	Message    string   `json:"message"`
	Tone       string   `json:"tone"`
	Creativity *float64 `json:"creativity"`
}

type imageRequest struct {
	Prompt      string `json:"prompt"`
	Style       string `json:"style"`
	AspectRatio string `json:"aspect_ratio"`
	Provider    string `json:"provider"`
	Quality     string `json:"quality"`
}

type gamedevRequest struct {
	Prompt string `json:"prompt"`
}

type smartRouteRequest struct {
	Prompt          string `json:"prompt"`
	TaskType        string `json:"task_type"`
	SpeedPriority   bool   `json:"speed_priority"`
	QualityPriority bool   `json:"quality_priority"`
}

type apiResponse struct {
	Output string `json:"output"`
}

type imageResponse struct {
	ImageURL string `json:"image_url"`
	Provider string `json:"provider"`
}

type smartRouteResponse struct {
	router.Result
	Success bool `json:"success"`
}

type modelsResponse struct {
	Models     map[string]router.ModelInfo `json:"models"`
	UsageStats map[string]int              `json:"usage_stats"`
}

// ---- Plain endpoints ----

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Content Studio AI gateway is running!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "Content Studio AI gateway",
		"version": "1.0.0",
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	text, err := guard.SanitizeAndValidate(req.Text, "text", maxTextLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondGenerated(w, r, summarizePrompt(text), defaultTemperature)
}

func (s *Server) handleSummarizeStream(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	text, err := guard.SanitizeAndValidate(req.Text, "text", maxTextLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.streamGenerated(w, r, summarizePrompt(text), defaultTemperature)
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	var req ideasRequest
	if !s.decode(w, r, &req) {
		return
	}
	topic, err := guard.SanitizeAndValidate(req.Topic, "topic", maxTopicLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondGenerated(w, r, ideasPrompt(topic), defaultTemperature)
}

func (s *Server) handleIdeasStream(w http.ResponseWriter, r *http.Request) {
	var req ideasRequest
	if !s.decode(w, r, &req) {
		return
	}
	topic, err := guard.SanitizeAndValidate(req.Topic, "topic", maxTopicLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.streamGenerated(w, r, ideasPrompt(topic), defaultTemperature)
}

func (s *Server) refinePromptFor(req refineRequest) (string, error) {
	text, err := guard.SanitizeAndValidate(req.Text, "text", maxTextLength)
	if err != nil {
		return "", err
	}
	instruction := ""
	if req.Instruction != "" {
		instruction, err = guard.SanitizeAndValidate(req.Instruction, "instruction", maxInstructionLength)
		if err != nil {
			return "", err
		}
	}
	return refinePrompt(text, instruction), nil
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if !s.decode(w, r, &req) {
		return
	}
	prompt, err := s.refinePromptFor(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondGenerated(w, r, prompt, defaultTemperature)
}

func (s *Server) handleRefineStream(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if !s.decode(w, r, &req) {
		return
	}
	prompt, err := s.refinePromptFor(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.streamGenerated(w, r, prompt, defaultTemperature)
}

func chatTemperature(req chatRequest) float64 {
	creativity := defaultTemperature
	if req.Creativity != nil {
		creativity = *req.Creativity
	}
	return min(1.0, max(0.0, creativity))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	message, err := guard.SanitizeAndValidate(req.Message, "message", maxMessageLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondGenerated(w, r, chatPrompt(message, req.Tone), chatTemperature(req))
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	message, err := guard.SanitizeAndValidate(req.Message, "message", maxMessageLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.streamGenerated(w, r, chatPrompt(message, req.Tone), chatTemperature(req))
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !s.decode(w, r, &req) {
		return
	}
	prompt, err := guard.SanitizeAndValidate(req.Prompt, "prompt", maxImagePromptLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	style := ""
	if req.Style != "" {
		style, err = guard.SanitizeAndValidate(req.Style, "style", maxStyleLength)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	res, err := s.images.Generate(r.Context(), prompt, style, req.AspectRatio, req.Provider, req.Quality)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, imageResponse{ImageURL: res.Payload, Provider: res.Provider})
}

func (s *Server) gamedevPromptFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	build, ok := gamedevPrompts[r.PathValue("kind")]
	if !ok {
		http.NotFound(w, r)
		return "", false
	}
	var req gamedevRequest
	if !s.decode(w, r, &req) {
		return "", false
	}
	prompt, err := guard.SanitizeAndValidate(req.Prompt, "prompt", maxGamedevLength)
	if err != nil {
		s.writeError(w, err)
		return "", false
	}
	return build(prompt), true
}

func (s *Server) handleGamedev(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.gamedevPromptFor(w, r)
	if !ok {
		return
	}
	s.respondGenerated(w, r, prompt, defaultTemperature)
}

func (s *Server) handleGamedevStream(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.gamedevPromptFor(w, r)
	if !ok {
		return
	}
	s.streamGenerated(w, r, prompt, defaultTemperature)
}

func (s *Server) handleSmartRoute(w http.ResponseWriter, r *http.Request) {
	var req smartRouteRequest
	if !s.decode(w, r, &req) {
		return
	}
	prompt, err := guard.SanitizeAndValidate(req.Prompt, "prompt", maxTextLength)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var task router.TaskType
	if req.TaskType != "" {
		task, _ = router.ParseTaskType(req.TaskType)
	}
	var prefs *router.Preferences
	if req.SpeedPriority || req.QualityPriority {
		prefs = &router.Preferences{
			SpeedPriority:   req.SpeedPriority,
			QualityPriority: req.QualityPriority,
		}
	}

	result, err := s.smart.RouteAndExecute(r.Context(), prompt, task, prefs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, smartRouteResponse{Result: *result, Success: true})
}

func (s *Server) handleAvailableModels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, modelsResponse{
		Models:     s.smart.AvailableModels(),
		UsageStats: s.smart.UsageStats(),
	})
}

// ---- Generation helpers ----

func (s *Server) respondGenerated(w http.ResponseWriter, r *http.Request, prompt string, temperature float64) {
	output, err := s.chain.Generate(r.Context(), prompt, temperature)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Output: output})
}

// streamGenerated relays provider chunks as server-sent events, one JSON
// object per event.
func (s *Server) streamGenerated(w http.ResponseWriter, r *http.Request, prompt string, temperature float64) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("response writer does not support streaming")
		s.writeError(w, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(ev relay.Event) error {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := s.relay.Run(r.Context(), s.streams, prompt, temperature, emit); err != nil {
		s.logger.Error("stream relay failed", zap.Error(err))
	}
}

// ---- JSON plumbing and error mapping ----

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid JSON request body"})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Messages stay
// generic; vendor payloads are logged elsewhere, never echoed.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *guard.ValidationError
		limitErr      *ratelimit.LimitExceededError
		configErr     *router.ConfigurationError
		providerErr   *providers.ProviderError
	)

	switch {
	case errors.As(err, &validationErr):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": validationErr.Error()})
	case errors.As(err, &limitErr):
		s.writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"detail": fmt.Sprintf("Rate limit exceeded. Try again after %s",
				limitErr.Info.ResetTime.Format(time.RFC3339)),
		})
	case errors.Is(err, router.ErrUnsupportedImageProvider):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Unsupported image provider"})
	case errors.As(err, &configErr):
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": configErr.Reason})
	case errors.Is(err, providers.ErrTimeout):
		s.writeJSON(w, http.StatusGatewayTimeout, map[string]string{"detail": "AI provider timed out"})
	case errors.Is(err, providers.ErrUnavailable):
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "AI provider unavailable"})
	case errors.As(err, &providerErr):
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "AI service error"})
	default:
		s.logger.Error("unhandled request error", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
	}
}
