// Package embedders provides text embedding clients for semantic stores.
package embedders

import (
	"context"
	"fmt"

	"github.com/janobot/janobot/pkg/config"
)

// Embedder converts text into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// NewEmbedder builds an embedder from configuration.
func NewEmbedder(cfg config.EmbedderConfig) (Embedder, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIEmbedder(cfg), nil
	case "ollama":
		return NewOllamaEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embedder type: %s", cfg.Type)
	}
}
