package llms

import (
	"fmt"

	"github.com/janobot/janobot/pkg/config"
	"github.com/janobot/janobot/pkg/registry"
)

// ProviderRegistry holds named providers.
type ProviderRegistry struct {
	*registry.BaseRegistry[Provider]
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

// CreateFromConfig builds a provider from configuration and registers it
// under the given name.
func (r *ProviderRegistry) CreateFromConfig(name string, cfg config.LLMConfig) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("provider name cannot be empty")
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.Register(name, provider); err != nil {
		return nil, fmt.Errorf("failed to register provider: %w", err)
	}
	return provider, nil
}

// NewProvider builds a provider from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
