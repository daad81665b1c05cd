package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which backend answers evaluator calls.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a single logical call, retries included. Zero disables it.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string // default "claude-haiku"
}

type OpenAIConfig struct {
	APIKey  string
	Model   string // default "gpt-4o-mini"
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string // default "gemini-flash"
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	AppName string // X-Title attribution, "anuvad" when empty
	AppURL  string // HTTP-Referer attribution, omitted when empty
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64

	// MaxInvalidRetries caps how many times a malformed reply is retried
	// within one call. Malformed replies are rarely transient.
	MaxInvalidRetries int
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderGemini,
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-001",
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialWait:       1 * time.Second,
			MaxWait:           10 * time.Second,
			Multiplier:        1.0,
			MaxInvalidRetries: 1,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from ANUVAD_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	return cfg
}

// ApplyEnv overlays ANUVAD_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if p := os.Getenv("ANUVAD_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	}

	if k := os.Getenv("ANUVAD_GEMINI_API_KEY"); k != "" {
		cfg.Gemini.APIKey = k
	}
	if m := os.Getenv("ANUVAD_GEMINI_MODEL"); m != "" {
		cfg.Gemini.Model = m
	}

	if k := os.Getenv("ANUVAD_OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
	}
	if m := os.Getenv("ANUVAD_OPENAI_MODEL"); m != "" {
		cfg.OpenAI.Model = m
	}
	if u := os.Getenv("ANUVAD_OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}

	if k := os.Getenv("ANUVAD_ANTHROPIC_API_KEY"); k != "" {
		cfg.Anthropic.APIKey = k
	}
	if m := os.Getenv("ANUVAD_ANTHROPIC_MODEL"); m != "" {
		cfg.Anthropic.Model = m
	}

	if k := os.Getenv("ANUVAD_OPENROUTER_API_KEY"); k != "" {
		cfg.OpenRouter.APIKey = k
	}
	if m := os.Getenv("ANUVAD_OPENROUTER_MODEL"); m != "" {
		cfg.OpenRouter.Model = m
	}
	if u := os.Getenv("ANUVAD_OPENROUTER_APP_URL"); u != "" {
		cfg.OpenRouter.AppURL = u
	}
}

// DiscoverConfig checks the vendors' standard API key variables in priority
// order (Gemini, OpenAI, Anthropic, OpenRouter) and returns a Config for the
// first one found. It reports false when none is set.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenRouter
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// HasKey reports whether the selected provider has an API key. The mock
// provider never needs one.
func (c Config) HasKey() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderOpenAI:
		return c.OpenAI.APIKey != ""
	case ProviderAnthropic:
		return c.Anthropic.APIKey != ""
	case ProviderOpenRouter:
		return c.OpenRouter.APIKey != ""
	case ProviderMock:
		return true
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("ANUVAD_GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("ANUVAD_OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANUVAD_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("ANUVAD_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
