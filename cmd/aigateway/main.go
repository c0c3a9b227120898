package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/contentstudio/aigateway/config"
	"github.com/contentstudio/aigateway/providers"
	"github.com/contentstudio/aigateway/ratelimit"
	"github.com/contentstudio/aigateway/relay"
	"github.com/contentstudio/aigateway/router"
	"github.com/contentstudio/aigateway/transport"
)

// EnvConfigYAML points at an optional YAML override file.
const EnvConfigYAML = "AIGATEWAY_CONFIG_YAML"

// outboundRPS throttles provider calls so a burst of inbound traffic does
// not trip vendor-side quotas.
const outboundRPS = 10

func main() {
	logerConfig := zap.NewProductionConfig()
	logerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := logerConfig.Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	configYAML := flag.String("config-yaml", "", "Path to YAML configuration file")
	listenAddr := flag.String("listen", "", "Listen address override (e.g. :8000)")
	flag.Parse()

	yamlPath := os.Getenv(EnvConfigYAML)
	if *configYAML != "" {
		yamlPath = *configYAML
	}

	cfg, err := config.Load(yamlPath, logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	// Update logger level based on configuration
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("Invalid log level in config, using default", zap.String("level", cfg.LogLevel))
	} else {
		logerConfig.Level = zap.NewAtomicLevelAt(level)
		if newLogger, err := logerConfig.Build(); err == nil {
			logger = newLogger
		}
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received termination signal")
		cancel()
	}()

	srv, err := buildServer(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("Failed to build gateway", zap.Error(err))
	}

	httpServer, listenerErrChan, err := transport.StartHTTPServer(ctx, logger, srv.Handler(), cfg.ListenAddr)
	if err != nil {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
	}

	select {
	case <-ctx.Done():
	case err := <-listenerErrChan:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Gateway shutdown timed out", zap.Error(err))
	} else {
		logger.Info("Gateway stopped gracefully")
	}
}

// buildServer wires the provider clients, routers, limiter, and relay into
// the HTTP surface according to the configured credentials.
func buildServer(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*transport.Server, error) {
	throttle := rate.NewLimiter(rate.Limit(outboundRPS), outboundRPS)

	var geminiThinking, geminiFlash providers.Client
	var geminiThinkingStream providers.StreamClient
	if cfg.GeminiAPIKey != "" {
		thinking, err := providers.NewGemini(ctx, cfg.GeminiAPIKey, "gemini-2.0-flash-thinking-exp", logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		flash, err := providers.NewGemini(ctx, cfg.GeminiAPIKey, "gemini-2.5-flash", logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		geminiThinking, geminiFlash = thinking, flash
		geminiThinkingStream = thinking
	}

	var llama, mixtral providers.Client
	var llamaStream providers.StreamClient
	if cfg.GroqAPIKey != "" {
		l := providers.NewGroq(cfg.GroqAPIKey, "llama-3.3-70b-versatile", logger)
		llama = l
		llamaStream = l
		mixtral = providers.NewGroq(cfg.GroqAPIKey, "mixtral-8x7b-32768", logger)
	}

	var mistralLarge providers.Client
	var mistralStream providers.StreamClient
	if cfg.MistralAPIKey != "" {
		m := providers.NewMistral(cfg.MistralAPIKey, "mistral-large-latest", logger)
		mistralLarge = m
		mistralStream = m
	}

	var grok providers.Client
	var grokStream providers.StreamClient
	if cfg.GrokAPIKey != "" {
		g := providers.NewGrok(cfg.GrokAPIKey, logger)
		grok = g
		grokStream = g
	}

	creds := cfg.Credentials()
	catalog := router.DefaultCatalog(router.CatalogClients{
		GeminiThinking: geminiThinking,
		GeminiFlash:    geminiFlash,
		Llama:          llama,
		Mixtral:        mixtral,
		MistralLarge:   mistralLarge,
		Pollinations:   providers.NewPollinationsPrompt(),
		Picsum:         providers.NewPicsumPrompt(),
	})
	smart := router.New(logger, catalog, creds, router.WithThrottle(throttle))

	var configured []router.ChainEntry
	if geminiThinking != nil {
		configured = append(configured, router.ChainEntry{
			Provider: router.ProviderGemini, Client: geminiThinking, Stream: geminiThinkingStream,
		})
	}
	if llama != nil {
		configured = append(configured, router.ChainEntry{
			Provider: router.ProviderGroq, Client: llama, Stream: llamaStream,
		})
	}
	if mistralLarge != nil {
		configured = append(configured, router.ChainEntry{
			Provider: router.ProviderMistral, Client: mistralLarge, Stream: mistralStream,
		})
	}
	if grok != nil {
		configured = append(configured, router.ChainEntry{
			Provider: router.ProviderGrok, Client: grok, Stream: grokStream,
		})
	}
	chain := router.BuildChain(logger, router.Provider(cfg.PrimaryProvider), cfg.EnableFallback,
		configured, router.WithChainThrottle(throttle))

	imageClients := router.ImageClients{
		Pollinations: providers.NewPollinationsImage(),
	}
	if cfg.GeminiAPIKey != "" {
		imageClients.Gemini = providers.NewGeminiImage(cfg.GeminiAPIKey, logger)
	}
	if key := cfg.GrokImageKey(); key != "" {
		imageClients.Grok = providers.NewGrokImage(key, logger)
	}
	if cfg.ImageAPIKey != "" {
		imageClients.Fal = providers.NewFalImage(cfg.ImageAPIKey, logger)
	}
	images := router.NewImageRouter(logger, imageClients, cfg.ImageCredentials())

	limiter, err := ratelimit.New(cfg.MaxTrackedClients)
	if err != nil {
		return nil, err
	}

	return transport.NewServer(logger, transport.Options{
		Limiter:        limiter,
		RateLimit:      cfg.RateLimitRequests,
		RateWindow:     cfg.RateLimitWindow,
		Chain:          chain,
		SmartRouter:    smart,
		Images:         images,
		Relay:          relay.New(logger),
		StreamClients:  chain.StreamClients(),
		AllowedOrigins: cfg.AllowedOrigins,
	}), nil
}
