package llm

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/pkg/config"
)

// NewFromConfig returns a factory for the configured provider, or nil when
// remote completion is disabled.
func NewFromConfig(cfg config.AIConfig, logger *zap.Logger) (*ClientFactory, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var build BuildFunc
	switch cfg.Provider {
	case config.AIProviderGemini:
		build = func(ctx context.Context) (Completer, error) {
			return NewGenAICompleter(ctx, cfg.APIKey, cfg.Model)
		}
	case config.AIProviderAnthropic:
		build = func(context.Context) (Completer, error) {
			return NewAnthropicCompleter(AnthropicConfig{
				APIKey:     cfg.APIKey,
				BaseURL:    cfg.BaseURL,
				Model:      cfg.Model,
				HTTPClient: &http.Client{Timeout: cfg.Timeout},
			})
		}
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}

	return NewClientFactory(build, cfg.ClientTTL, WithLogger(logger.With(zap.String("ai_provider", cfg.Provider)))), nil
}
