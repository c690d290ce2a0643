package vector

import (
	"fmt"

	"github.com/janobot/janobot/pkg/config"
	"github.com/janobot/janobot/pkg/embedders"
)

// NewStore builds a store from configuration. Semantic backends require an
// embedder; the keyword store ignores it.
func NewStore(cfg config.StoreConfig, embedder embedders.Embedder) (Store, error) {
	switch cfg.Type {
	case "keyword", "":
		return NewKeywordStore(), nil

	case "chromem":
		if embedder == nil {
			return nil, fmt.Errorf("chromem store requires an embedder")
		}
		return NewChromemStore(embedder, ChromemOptions{
			Collection:  cfg.Collection,
			PersistPath: cfg.Path,
		})

	case "qdrant":
		if embedder == nil {
			return nil, fmt.Errorf("qdrant store requires an embedder")
		}
		return NewQdrantStore(embedder, QdrantOptions{
			Host:       cfg.Host,
			Port:       cfg.Port,
			APIKey:     cfg.APIKey,
			UseTLS:     cfg.UseTLS,
			Collection: cfg.Collection,
		})

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
