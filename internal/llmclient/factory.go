// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/config"
)

// NewClient builds an LLMClient for the configured provider. Callers that
// tolerate a missing provider should check cfg.Configured() first; this
// factory treats an unconfigured provider as ErrProviderUnavailable.
func NewClient(cfg config.ProviderConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: no provider configured", schemas.ErrProviderUnavailable)
	}

	switch cfg.Name {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported provider configured: %q (supported: %s)",
			cfg.Name, config.ProviderGemini)
	}
}
