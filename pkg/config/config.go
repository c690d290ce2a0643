// Package config defines the service configuration and its YAML loader.
//
// Every section follows the same contract: SetDefaults fills zero values,
// Validate rejects inconsistent settings. Load applies env var expansion to
// the raw YAML before decoding, so values like api_key: ${OPENAI_API_KEY}
// work anywhere in the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	LLM     LLMConfig     `yaml:"llm"`
	Memory  MemoryConfig  `yaml:"memory"`
	RAG     RAGConfig     `yaml:"rag"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Tools   ToolsConfig   `yaml:"tools"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

func (c *Config) SetDefaults() {
	c.Agent.SetDefaults()
	c.LLM.SetDefaults()
	c.Memory.SetDefaults()
	c.RAG.SetDefaults()
	c.Ingest.SetDefaults()
	c.Tools.SetDefaults()
	c.Server.SetDefaults()
	c.Logging.SetDefaults()
}

func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Memory.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if err := c.RAG.Validate(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// AgentConfig configures the reasoning agent.
type AgentConfig struct {
	// Name identifies the agent in status responses.
	Name string `yaml:"name"`

	// MaxIterations bounds the tool-use loop per query.
	MaxIterations int `yaml:"max_iterations"`
}

func (c *AgentConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "JanoBot"
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
}

func (c *AgentConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	// Type selects the provider: "openai" or "ollama".
	Type string `yaml:"type"`

	Model string `yaml:"model"`

	// APIKey for hosted providers. Supports ${ENV} expansion.
	APIKey string `yaml:"api_key,omitempty"`

	// Host overrides the provider base URL (required for ollama).
	Host string `yaml:"host,omitempty"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Timeout is the request timeout in seconds.
	Timeout    int `yaml:"timeout"`
	MaxRetries int `yaml:"max_retries"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "openai"
	}
	if c.Model == "" {
		switch c.Type {
		case "ollama":
			c.Model = "llama3"
		default:
			c.Model = "gpt-4o-mini"
		}
	}
	if c.APIKey == "" {
		c.APIKey = ProviderAPIKey(c.Type)
	}
	if c.Host == "" {
		switch c.Type {
		case "ollama":
			c.Host = "http://localhost:11434"
		default:
			c.Host = "https://api.openai.com/v1"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Type {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported provider type: %s", c.Type)
	}
	if c.Type == "openai" && c.APIKey == "" {
		return fmt.Errorf("api_key is required for openai (set OPENAI_API_KEY)")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature)
	}
	return nil
}

// MemoryConfig configures conversation memory.
type MemoryConfig struct {
	// MaxMessages bounds the in-memory history ring.
	MaxMessages int `yaml:"max_messages"`

	// TokenBudget trims prompt context to this many tokens. 0 disables.
	TokenBudget int `yaml:"token_budget,omitempty"`

	// Path enables SQLite persistence when set.
	Path string `yaml:"path,omitempty"`
}

func (c *MemoryConfig) SetDefaults() {
	if c.MaxMessages == 0 {
		c.MaxMessages = 10
	}
}

func (c *MemoryConfig) Validate() error {
	if c.MaxMessages < 1 {
		return fmt.Errorf("max_messages must be positive, got %d", c.MaxMessages)
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("token_budget cannot be negative")
	}
	return nil
}

// RAGConfig configures retrieval.
type RAGConfig struct {
	Store    StoreConfig    `yaml:"store"`
	Embedder EmbedderConfig `yaml:"embedder"`

	// TopK is the number of documents retrieved per query.
	TopK int `yaml:"top_k"`

	// SnippetLength truncates documents in formatted context.
	SnippetLength int `yaml:"snippet_length"`
}

func (c *RAGConfig) SetDefaults() {
	c.Store.SetDefaults()
	c.Embedder.SetDefaults()
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.SnippetLength == 0 {
		c.SnippetLength = 200
	}
}

func (c *RAGConfig) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Store.Type != "keyword" {
		if err := c.Embedder.Validate(); err != nil {
			return fmt.Errorf("embedder: %w", err)
		}
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	return nil
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	// Type: "keyword" (in-memory term matching, no embedder needed),
	// "chromem" (embedded vector store) or "qdrant" (external server).
	Type string `yaml:"type"`

	// Collection names the document collection.
	Collection string `yaml:"collection"`

	// Path enables on-disk persistence for chromem.
	Path string `yaml:"path,omitempty"`

	// Host and Port locate a qdrant server.
	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "keyword"
	}
	if c.Collection == "" {
		c.Collection = "documents"
	}
	if c.Type == "qdrant" {
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == 0 {
			c.Port = 6334
		}
	}
}

func (c *StoreConfig) Validate() error {
	switch c.Type {
	case "keyword", "chromem", "qdrant":
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", c.Type)
	}
}

// EmbedderConfig configures the embedding provider for semantic stores.
type EmbedderConfig struct {
	// Type: "openai" or "ollama".
	Type string `yaml:"type"`

	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key,omitempty"`
	Host   string `yaml:"host,omitempty"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "openai"
	}
	if c.Model == "" {
		switch c.Type {
		case "ollama":
			c.Model = "nomic-embed-text"
		default:
			c.Model = "text-embedding-3-small"
		}
	}
	if c.APIKey == "" {
		c.APIKey = ProviderAPIKey(c.Type)
	}
	if c.Host == "" {
		switch c.Type {
		case "ollama":
			c.Host = "http://localhost:11434"
		default:
			c.Host = "https://api.openai.com/v1"
		}
	}
}

func (c *EmbedderConfig) Validate() error {
	switch c.Type {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedder type: %s", c.Type)
	}
	if c.Type == "openai" && c.APIKey == "" {
		return fmt.Errorf("api_key is required for openai (set OPENAI_API_KEY)")
	}
	return nil
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// WatchDir enables automatic re-ingestion of files in this directory.
	WatchDir string `yaml:"watch_dir,omitempty"`

	// Pattern filters directory ingestion by glob (default "*").
	Pattern string `yaml:"pattern"`

	// Concurrency bounds parallel file ingestion.
	Concurrency int `yaml:"concurrency"`
}

func (c *IngestConfig) SetDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 500
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 50
	}
	if c.Pattern == "" {
		c.Pattern = "*"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
}

func (c *IngestConfig) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap cannot be negative")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// ToolsConfig configures built-in tools and remote MCP servers.
type ToolsConfig struct {
	// Search, Calculator and Retriever toggle the built-in tools.
	// All default to enabled.
	Search     *bool `yaml:"search,omitempty"`
	Calculator *bool `yaml:"calculator,omitempty"`
	Retriever  *bool `yaml:"retriever,omitempty"`

	// MCP lists remote MCP tool servers to discover tools from.
	MCP []MCPServerConfig `yaml:"mcp,omitempty"`
}

func (c *ToolsConfig) SetDefaults() {
	if c.Search == nil {
		c.Search = boolPtr(true)
	}
	if c.Calculator == nil {
		c.Calculator = boolPtr(true)
	}
	if c.Retriever == nil {
		c.Retriever = boolPtr(true)
	}
	for i := range c.MCP {
		c.MCP[i].SetDefaults()
	}
}

func (c *ToolsConfig) Validate() error {
	for i := range c.MCP {
		if err := c.MCP[i].Validate(); err != nil {
			return fmt.Errorf("mcp[%d]: %w", i, err)
		}
	}
	return nil
}

// MCPServerConfig describes one MCP server connection.
type MCPServerConfig struct {
	Name string `yaml:"name"`

	// URL for HTTP transports.
	URL string `yaml:"url,omitempty"`

	// Command and Args for stdio transport.
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`

	Env map[string]string `yaml:"env,omitempty"`
}

func (c *MCPServerConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "mcp"
	}
}

func (c *MCPServerConfig) Validate() error {
	if c.URL == "" && c.Command == "" {
		return fmt.Errorf("either url or command is required")
	}
	return nil
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Timeouts are in seconds.
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
	IdleTimeout  int `yaml:"idle_timeout"`

	// CORS enables permissive cross-origin headers. Defaults to enabled.
	CORS *bool `yaml:"cors,omitempty"`

	// Metrics mounts /metrics. Defaults to enabled.
	Metrics *bool `yaml:"metrics,omitempty"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 120
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.CORS == nil {
		c.CORS = boolPtr(true)
	}
	if c.Metrics == nil {
		c.Metrics = boolPtr(true)
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Address returns the host:port listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format: simple or verbose.
	Format string `yaml:"format"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Default returns a zero-config setup: keyword store, no persistence,
// server on localhost:8000.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load reads a YAML config file, expands env references and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expanded, err := yaml.Marshal(ExpandEnvVarsInData(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func boolPtr(b bool) *bool {
	return &b
}

// BoolValue dereferences a pointer-bool setting, falling back to def.
func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
