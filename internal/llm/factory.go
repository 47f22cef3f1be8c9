package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/quizcraft/internal/logger"
	"github.com/abhisek/quizcraft/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → retry → resilience → timeout → logging → base.
// Every transport attempt is recorded; the breaker sees each attempt too.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg, eventRepo, log), nil
}

// Wrap applies the standard middleware chain to an existing provider.
func Wrap(base Provider, cfg Config, eventRepo store.EventRepo, log *logger.Logger) Provider {
	logged := WithLogging(base, cfg.Provider, eventRepo, log)
	bounded := WithTimeout(logged, cfg.Timeout)
	guarded := WithResilience(bounded, cfg.Resilience, log)
	return WithRetry(guarded, cfg.Retry, log)
}
