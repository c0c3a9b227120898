package router_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentstudio/aigateway/router"
)

type stubClient struct {
	name   string
	output string
	err    error
	calls  int
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Generate(_ context.Context, _ string, _ float64) (string, error) {
	s.calls++
	return s.output, s.err
}

func allCreds() router.Credentials {
	return router.Credentials{Gemini: true, Groq: true, Mistral: true, Grok: true}
}

func newTestRouter(t *testing.T, clients router.CatalogClients, creds router.Credentials) *router.Router {
	t.Helper()
	return router.New(zap.NewNop(), router.DefaultCatalog(clients), creds)
}

func TestSelectModelByStrengthAndQuality(t *testing.T) {
	r := newTestRouter(t, router.CatalogClients{}, allCreds())

	// code_generation: llama (92) beats mistral-large (90).
	m := r.SelectModel(router.TaskCodeGeneration, nil)
	assert.Equal(t, "llama-3.3-70b", m.Name)

	// summarization: only gemini-2.5-flash is strong at it.
	m = r.SelectModel(router.TaskSummarization, nil)
	assert.Equal(t, "gemini-2.5-flash", m.Name)
}

func TestSelectModelSpeedPriority(t *testing.T) {
	r := newTestRouter(t, router.CatalogClients{}, allCreds())

	// text_generation: quality order is gemini-2.0-flash-thinking (90,
	// fast) then mixtral (88, fast); neither is very_fast so the speed
	// re-sort leaves the quality order intact.
	m := r.SelectModel(router.TaskTextGeneration, &router.Preferences{SpeedPriority: true})
	assert.Equal(t, "gemini-2.0-flash-thinking", m.Name)

	// image_generation: picsum (75, very_fast) jumps ahead of
	// pollinations (85, fast) under speed priority.
	m = r.SelectModel(router.TaskImageGeneration, &router.Preferences{SpeedPriority: true})
	assert.Equal(t, "picsum-photos", m.Name)
}

func TestSelectModelQualityPriorityIsIdempotent(t *testing.T) {
	r := newTestRouter(t, router.CatalogClients{}, allCreds())
	m := r.SelectModel(router.TaskImageGeneration, &router.Preferences{QualityPriority: true})
	assert.Equal(t, "pollinations-flux", m.Name)
}

func TestSelectModelSkipsUncredentialedProviders(t *testing.T) {
	// code_generation candidates are groq and mistral models; with only
	// mistral credentialed, mistral-large wins despite lower quality.
	r := newTestRouter(t, router.CatalogClients{}, router.Credentials{Mistral: true})
	m := r.SelectModel(router.TaskCodeGeneration, nil)
	assert.Equal(t, "mistral-large", m.Name)
}

func TestSelectModelFallsBackToDefaultWithoutCredentials(t *testing.T) {
	r := newTestRouter(t, router.CatalogClients{}, router.Credentials{})
	m := r.SelectModel(router.TaskCodeGeneration, nil)
	assert.Equal(t, router.DefaultModelName, m.Name)
}

func TestSelectModelUnknownTaskUsesDefault(t *testing.T) {
	r := newTestRouter(t, router.CatalogClients{}, allCreds())
	m := r.SelectModel(router.TaskType("unmapped"), nil)
	assert.Equal(t, router.DefaultModelName, m.Name)
}

func TestRouteAndExecuteSuccess(t *testing.T) {
	llama := &stubClient{name: "groq", output: "generated code"}
	r := newTestRouter(t, router.CatalogClients{Llama: llama}, allCreds())

	res, err := r.RouteAndExecute(context.Background(), "write a function to sort a list", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "generated code", res.Output)
	assert.Equal(t, "llama-3.3-70b", res.ModelUsed)
	assert.Equal(t, router.ProviderGroq, res.Provider)
	assert.Equal(t, router.TaskCodeGeneration, res.TaskType)
	assert.False(t, res.Fallback)

	stats := r.UsageStats()
	assert.Equal(t, 1, stats["llama-3.3-70b:code_generation"])
}

func TestRouteAndExecuteFallbackToDefault(t *testing.T) {
	llama := &stubClient{name: "groq", err: errors.New("boom")}
	thinking := &stubClient{name: "gemini", output: "fallback output"}
	r := newTestRouter(t, router.CatalogClients{Llama: llama, GeminiThinking: thinking}, allCreds())

	res, err := r.RouteAndExecute(context.Background(), "write a function to sort a list", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback output", res.Output)
	assert.Equal(t, router.DefaultModelName, res.ModelUsed)
	assert.True(t, res.Fallback)
	assert.Equal(t, 1, llama.calls)
	assert.Equal(t, 1, thinking.calls)

	// Usage is attributed to the model that actually served the request.
	stats := r.UsageStats()
	assert.Equal(t, 1, stats["gemini-2.0-flash-thinking:code_generation"])
	assert.Zero(t, stats["llama-3.3-70b:code_generation"])
}

func TestRouteAndExecuteFallbackAlsoFails(t *testing.T) {
	llama := &stubClient{name: "groq", err: errors.New("primary down")}
	thinking := &stubClient{name: "gemini", err: errors.New("fallback down")}
	r := newTestRouter(t, router.CatalogClients{Llama: llama, GeminiThinking: thinking}, allCreds())

	_, err := r.RouteAndExecute(context.Background(), "write a function", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback down")
	assert.Empty(t, r.UsageStats())
}

func TestRouteAndExecuteDefaultModelFailureIsTerminal(t *testing.T) {
	thinking := &stubClient{name: "gemini", err: errors.New("down")}
	r := newTestRouter(t, router.CatalogClients{GeminiThinking: thinking}, router.Credentials{Gemini: true})

	// analysis routes to the default model directly; no second hop.
	_, err := r.RouteAndExecute(context.Background(), "analyze this data", "", nil)
	require.Error(t, err)
	assert.Equal(t, 1, thinking.calls)
}

func TestRouteAndExecuteNoCredentialsAnywhere(t *testing.T) {
	r := newTestRouter(t, router.CatalogClients{}, router.Credentials{})

	_, err := r.RouteAndExecute(context.Background(), "analyze this data", "", nil)
	var cerr *router.ConfigurationError
	require.True(t, errors.As(err, &cerr))
}

func TestRouteAndExecuteExplicitTaskSkipsClassification(t *testing.T) {
	flash := &stubClient{name: "gemini", output: "summary"}
	r := newTestRouter(t, router.CatalogClients{GeminiFlash: flash}, allCreds())

	res, err := r.RouteAndExecute(context.Background(), "no keywords here", router.TaskSummarization, nil)
	require.NoError(t, err)
	assert.Equal(t, router.TaskSummarization, res.TaskType)
	assert.Equal(t, "gemini-2.5-flash", res.ModelUsed)
}

func TestAvailableModels(t *testing.T) {
	r := newTestRouter(t, router.CatalogClients{}, router.Credentials{Gemini: true})

	models := r.AvailableModels()
	require.Len(t, models, 7)

	assert.True(t, models["gemini-2.5-flash"].Available)
	assert.False(t, models["llama-3.3-70b"].Available)
	// Keyless endpoints are always available.
	assert.True(t, models["pollinations-flux"].Available)
	assert.True(t, models["picsum-photos"].Available)

	info := models["llama-3.3-70b"]
	assert.Equal(t, router.ProviderGroq, info.Provider)
	assert.Equal(t, 92, info.Quality)
	assert.Equal(t, router.SpeedVeryFast, info.Speed)
	assert.Contains(t, info.Strengths, router.TaskCodeGeneration)
}
