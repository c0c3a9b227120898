package router

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/contentstudio/aigateway/providers"
)

// ProviderFal is only reachable through an explicit provider override on
// the image endpoint; it never participates in tier routing.
const ProviderFal Provider = "fal"

// ErrUnsupportedImageProvider reports an explicit provider override naming
// a vendor this deployment does not serve. It maps to an HTTP 400.
var ErrUnsupportedImageProvider = errors.New("unsupported image provider configuration")

// aspectRatios maps the request aspect-ratio names to pixel dimensions.
var aspectRatios = map[string][2]int{
	"square":    {1024, 1024},
	"portrait":  {832, 1216},
	"landscape": {1216, 832},
}

// ImageCredentials records which image vendors have credentials. The
// keyless Pollinations endpoint is always available.
type ImageCredentials struct {
	Gemini bool
	Grok   bool
	Fal    bool
}

// ImageClients holds the bound image provider adapters.
type ImageClients struct {
	Pollinations providers.ImageClient
	Gemini       providers.ImageClient
	Grok         providers.ImageClient
	Fal          providers.ImageClient
}

// ImageRouter routes image generations by explicit provider override or by
// quality tier: fast and balanced go to Pollinations, high prefers Gemini,
// ultra prefers Grok. Credentialed tiers degrade toward Pollinations,
// which cannot fail (it only builds a URL).
type ImageRouter struct {
	logger  *zap.Logger
	clients ImageClients
	creds   ImageCredentials
}

func NewImageRouter(logger *zap.Logger, clients ImageClients, creds ImageCredentials) *ImageRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageRouter{logger: logger, clients: clients, creds: creds}
}

// Generate resolves the target provider and executes it, degrading along
// the tier fallback order on failure.
func (ir *ImageRouter) Generate(ctx context.Context, prompt, style, aspectRatio, provider, quality string) (*providers.ImageResult, error) {
	description := strings.TrimSpace(prompt)
	if s := strings.TrimSpace(style); s != "" {
		description += ", " + s
	}

	ratio, ok := aspectRatios[strings.ToLower(aspectRatio)]
	if !ok {
		ratio = aspectRatios["square"]
	}

	tier := strings.ToLower(quality)
	if tier == "" {
		tier = "balanced"
	}

	var selected Provider
	if provider != "" {
		selected = Provider(strings.ToLower(provider))
	} else {
		selected = ir.tierProvider(tier)
	}

	req := providers.ImageRequest{
		Prompt:  description,
		Width:   ratio[0],
		Height:  ratio[1],
		Quality: tier,
	}

	for {
		switch selected {
		case ProviderGemini:
			if !ir.creds.Gemini || ir.clients.Gemini == nil {
				ir.logger.Warn("Gemini image provider selected without credentials, degrading to Pollinations")
				selected = ProviderPollinations
				continue
			}
			res, err := ir.clients.Gemini.GenerateImage(ctx, req)
			if err == nil {
				return res, nil
			}
			ir.logger.Warn("Gemini image generation failed, degrading to Pollinations", zap.Error(err))
			selected = ProviderPollinations

		case ProviderGrok:
			if !ir.creds.Grok || ir.clients.Grok == nil {
				ir.logger.Warn("Grok image provider selected without credentials, degrading")
				selected = ir.geminiOrPollinations()
				continue
			}
			res, err := ir.clients.Grok.GenerateImage(ctx, req)
			if err == nil {
				return res, nil
			}
			ir.logger.Warn("Grok image generation failed, degrading", zap.Error(err))
			selected = ir.geminiOrPollinations()

		case ProviderPollinations:
			return ir.clients.Pollinations.GenerateImage(ctx, req)

		case ProviderFal:
			if !ir.creds.Fal || ir.clients.Fal == nil {
				return nil, &ConfigurationError{Reason: "image API key not configured"}
			}
			return ir.clients.Fal.GenerateImage(ctx, req)

		default:
			ir.logger.Error("Unsupported image provider requested", zap.String("provider", string(selected)))
			return nil, ErrUnsupportedImageProvider
		}
	}
}

func (ir *ImageRouter) tierProvider(tier string) Provider {
	switch tier {
	case "high":
		if ir.creds.Gemini {
			return ProviderGemini
		}
		return ProviderPollinations
	case "ultra":
		if ir.creds.Grok {
			return ProviderGrok
		}
		return ir.geminiOrPollinations()
	default: // fast, balanced, and anything unrecognized
		return ProviderPollinations
	}
}

func (ir *ImageRouter) geminiOrPollinations() Provider {
	if ir.creds.Gemini {
		return ProviderGemini
	}
	return ProviderPollinations
}
