package router

import (
	"slices"

	"github.com/contentstudio/aigateway/providers"
)

// Provider identifies an external vendor.
type Provider string

const (
	ProviderGemini       Provider = "gemini"
	ProviderGroq         Provider = "groq"
	ProviderMistral      Provider = "mistral"
	ProviderGrok         Provider = "grok"
	ProviderPollinations Provider = "pollinations"
	ProviderPicsum       Provider = "picsum"
)

// Speed is an ordered tier: very_fast > fast > medium.
type Speed string

const (
	SpeedVeryFast Speed = "very_fast"
	SpeedFast     Speed = "fast"
	SpeedMedium   Speed = "medium"
)

// Model is one static (provider, model) catalog entry. The executing
// client is bound once at catalog construction; entries are never mutated
// afterwards.
type Model struct {
	Name          string
	Provider      Provider
	Strengths     []TaskType
	Quality       int
	Speed         Speed
	ContextWindow int
	Client        providers.Client
}

// StrongAt reports whether task is in the model's strength set.
func (m *Model) StrongAt(task TaskType) bool {
	return slices.Contains(m.Strengths, task)
}

// DefaultModelName is the designated general-purpose fallback model.
const DefaultModelName = "gemini-2.0-flash-thinking"

// CatalogClients holds the provider clients bound into the default
// catalog. Entries for unconfigured providers may be nil; the router's
// credential filter keeps them from executing.
type CatalogClients struct {
	GeminiThinking providers.Client
	GeminiFlash    providers.Client
	Llama          providers.Client
	Mixtral        providers.Client
	MistralLarge   providers.Client
	Pollinations   providers.Client
	Picsum         providers.Client
}

// DefaultCatalog builds the fixed model catalog with clients bound in.
func DefaultCatalog(c CatalogClients) []Model {
	return []Model{
		{
			Name:          "gemini-2.0-flash-thinking",
			Provider:      ProviderGemini,
			Strengths:     []TaskType{TaskTextGeneration, TaskAnalysis, TaskCreativeWriting},
			Quality:       90,
			Speed:         SpeedFast,
			ContextWindow: 32000,
			Client:        c.GeminiThinking,
		},
		{
			Name:          "gemini-2.5-flash",
			Provider:      ProviderGemini,
			Strengths:     []TaskType{TaskChat, TaskSummarization},
			Quality:       85,
			Speed:         SpeedVeryFast,
			ContextWindow: 8000,
			Client:        c.GeminiFlash,
		},
		{
			Name:          "llama-3.3-70b",
			Provider:      ProviderGroq,
			Strengths:     []TaskType{TaskCodeGeneration, TaskTechnicalWriting},
			Quality:       92,
			Speed:         SpeedVeryFast,
			ContextWindow: 8000,
			Client:        c.Llama,
		},
		{
			Name:          "mixtral-8x7b",
			Provider:      ProviderGroq,
			Strengths:     []TaskType{TaskTextGeneration, TaskAnalysis},
			Quality:       88,
			Speed:         SpeedFast,
			ContextWindow: 32000,
			Client:        c.Mixtral,
		},
		{
			Name:          "mistral-large",
			Provider:      ProviderMistral,
			Strengths:     []TaskType{TaskCodeGeneration, TaskTechnicalWriting},
			Quality:       90,
			Speed:         SpeedMedium,
			ContextWindow: 32000,
			Client:        c.MistralLarge,
		},
		{
			Name:      "pollinations-flux",
			Provider:  ProviderPollinations,
			Strengths: []TaskType{TaskImageGeneration},
			Quality:   85,
			Speed:     SpeedFast,
			Client:    c.Pollinations,
		},
		{
			Name:      "picsum-photos",
			Provider:  ProviderPicsum,
			Strengths: []TaskType{TaskImageGeneration},
			Quality:   75,
			Speed:     SpeedVeryFast,
			Client:    c.Picsum,
		},
	}
}

// Credentials records, per provider, whether an access credential is
// present. Read once at startup and treated as immutable for the process
// lifetime. The keyless free endpoints are always available.
type Credentials struct {
	Gemini  bool
	Groq    bool
	Mistral bool
	Grok    bool
}

// Has reports whether the provider can be executed.
func (c Credentials) Has(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.Gemini
	case ProviderGroq:
		return c.Groq
	case ProviderMistral:
		return c.Mistral
	case ProviderGrok:
		return c.Grok
	case ProviderPollinations, ProviderPicsum:
		return true
	}
	return false
}
