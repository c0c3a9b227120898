// Package config loads gateway settings from the environment, with an
// optional YAML file overriding individual values. A .env file in the
// working directory is folded into the environment first, so local
// development and container deployments read the same variable names.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/contentstudio/aigateway/router"
)

// Provider key environment variables.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvGrokAPIKey      = "GROK_API_KEY"
	EnvGrokImageAPIKey = "GROK_IMAGE_API_KEY"
	EnvGroqAPIKey      = "GROQ_API_KEY"
	EnvMistralAPIKey   = "MISTRAL_API_KEY"
	EnvImageAPIKey     = "IMAGE_API_KEY"
)

// Config carries every runtime setting of the gateway.
type Config struct {
	ListenAddr string
	LogLevel   string

	GeminiAPIKey    string
	GrokAPIKey      string
	GrokImageAPIKey string
	GroqAPIKey      string
	MistralAPIKey   string
	ImageAPIKey     string

	PrimaryProvider string
	EnableFallback  bool
	ImageProvider   string

	AllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	MaxTrackedClients int
}

// yamlConfig mirrors the optional configuration file.
type yamlConfig struct {
	Server struct {
		Address  string `yaml:"address"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"server"`
	Providers struct {
		Primary        string `yaml:"primary"`
		EnableFallback *bool  `yaml:"enable_fallback"`
		Image          string `yaml:"image"`
	} `yaml:"providers"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		Requests   int    `yaml:"requests"`
		Window     string `yaml:"window"`
		MaxClients int    `yaml:"max_clients"`
	} `yaml:"rate_limit"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:      ":8000",
		LogLevel:        "info",
		PrimaryProvider: "gemini",
		EnableFallback:  true,
		ImageProvider:   "pollinations",
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:3001",
			"http://localhost:3002",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:3001",
			"http://127.0.0.1:3002",
		},
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
		MaxTrackedClients: 4096,
	}
}

// Load builds the configuration from defaults, the environment, and an
// optional YAML file. yamlPath may be empty.
func Load(yamlPath string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Missing .env is the normal case outside local development.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env file")
	}

	cfg := defaults()
	cfg.applyEnv()

	if yamlPath != "" {
		if err := cfg.applyYAML(yamlPath); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", yamlPath, err)
		}
		logger.Info("Applied configuration overrides", zap.String("path", yamlPath))
	}

	if cfg.RateLimitRequests <= 0 {
		return nil, fmt.Errorf("rate limit requests must be positive, got %d", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", cfg.RateLimitWindow)
	}

	cfg.logCredentialPresence(logger)
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.GeminiAPIKey, EnvGeminiAPIKey)
	setString(&c.GrokAPIKey, EnvGrokAPIKey)
	setString(&c.GrokImageAPIKey, EnvGrokImageAPIKey)
	setString(&c.GroqAPIKey, EnvGroqAPIKey)
	setString(&c.MistralAPIKey, EnvMistralAPIKey)
	setString(&c.ImageAPIKey, EnvImageAPIKey)
	setString(&c.PrimaryProvider, "PRIMARY_AI_PROVIDER")
	setString(&c.ImageProvider, "IMAGE_API_PROVIDER")
	c.PrimaryProvider = strings.ToLower(c.PrimaryProvider)
	c.ImageProvider = strings.ToLower(c.ImageProvider)

	if v := os.Getenv("ENABLE_AI_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EnableFallback = b
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		c.AllowedOrigins = c.AllowedOrigins[:0]
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitRequests = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RateLimitWindow = d
		}
	}
}

func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if yc.Server.Address != "" {
		c.ListenAddr = yc.Server.Address
	}
	if yc.Server.LogLevel != "" {
		c.LogLevel = yc.Server.LogLevel
	}
	if yc.Providers.Primary != "" {
		c.PrimaryProvider = strings.ToLower(yc.Providers.Primary)
	}
	if yc.Providers.EnableFallback != nil {
		c.EnableFallback = *yc.Providers.EnableFallback
	}
	if yc.Providers.Image != "" {
		c.ImageProvider = strings.ToLower(yc.Providers.Image)
	}
	if len(yc.CORS.AllowedOrigins) > 0 {
		c.AllowedOrigins = yc.CORS.AllowedOrigins
	}
	if yc.RateLimit.Requests > 0 {
		c.RateLimitRequests = yc.RateLimit.Requests
	}
	if yc.RateLimit.Window != "" {
		d, err := time.ParseDuration(yc.RateLimit.Window)
		if err != nil {
			return fmt.Errorf("invalid rate_limit.window: %w", err)
		}
		c.RateLimitWindow = d
	}
	if yc.RateLimit.MaxClients > 0 {
		c.MaxTrackedClients = yc.RateLimit.MaxClients
	}
	return nil
}

// Credentials reports which text providers have keys configured.
func (c *Config) Credentials() router.Credentials {
	return router.Credentials{
		Gemini:  c.GeminiAPIKey != "",
		Groq:    c.GroqAPIKey != "",
		Mistral: c.MistralAPIKey != "",
		Grok:    c.GrokAPIKey != "",
	}
}

// ImageCredentials reports which image providers are usable. Grok image
// generation accepts a dedicated key and falls back to the chat key.
func (c *Config) ImageCredentials() router.ImageCredentials {
	return router.ImageCredentials{
		Gemini: c.GeminiAPIKey != "",
		Grok:   c.GrokImageAPIKey != "" || c.GrokAPIKey != "",
		Fal:    c.ImageAPIKey != "",
	}
}

// GrokImageKey resolves the key used for Grok image generation.
func (c *Config) GrokImageKey() string {
	if c.GrokImageAPIKey != "" {
		return c.GrokImageAPIKey
	}
	return c.GrokAPIKey
}

func (c *Config) logCredentialPresence(logger *zap.Logger) {
	logger.Info("Provider credentials",
		zap.Bool("gemini", c.GeminiAPIKey != ""),
		zap.Bool("groq", c.GroqAPIKey != ""),
		zap.Bool("mistral", c.MistralAPIKey != ""),
		zap.Bool("grok", c.GrokAPIKey != ""),
		zap.Bool("grok_image", c.GrokImageAPIKey != ""),
		zap.Bool("image", c.ImageAPIKey != ""))
}
