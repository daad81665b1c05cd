package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider builds the configured provider wrapped with middleware:
// caller → timeout → retry → logging → base. recorder may be nil.
func NewProvider(ctx context.Context, cfg Config, recorder Recorder, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, recorder, logger)
	retried := WithRetry(logged, cfg.Retry)
	return WithTimeout(retried, cfg.Timeout), nil
}
