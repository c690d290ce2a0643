package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
agent:
  name: TestBot
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "TestBot", cfg.Agent.Name)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, "openai", cfg.LLM.Type)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 10, cfg.Memory.MaxMessages)
	assert.Equal(t, "keyword", cfg.RAG.Store.Type)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 50, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, "localhost:8000", cfg.Server.Address())
	assert.True(t, *cfg.Tools.Search)
	assert.True(t, *cfg.Server.Metrics)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("JANOBOT_PORT", "9001")

	path := writeConfig(t, `
llm:
  api_key: ${OPENAI_API_KEY}
server:
  port: ${JANOBOT_PORT}
  host: ${JANOBOT_HOST:-0.0.0.0}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	path := writeConfig(t, `
llm:
  type: openai
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoadOllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	path := writeConfig(t, `
llm:
  type: ollama
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Host)
}

func TestChunkOverlapValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
ingest:
  chunk_size: 100
  chunk_overlap: 100
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestUnsupportedStoreType(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
rag:
  store:
    type: pinecone
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store type")
}

func TestMCPServerValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
tools:
  mcp:
    - name: broken
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either url or command")
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "JanoBot", cfg.Agent.Name)
	assert.Equal(t, "keyword", cfg.RAG.Store.Type)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestQdrantStoreDefaults(t *testing.T) {
	cfg := &StoreConfig{Type: "qdrant"}
	cfg.SetDefaults()

	if cfg.Host != "localhost" {
		t.Errorf("expected localhost, got %s", cfg.Host)
	}
	if cfg.Port != 6334 {
		t.Errorf("expected 6334, got %d", cfg.Port)
	}
}
