package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/janobot/janobot/pkg/agent"
	"github.com/janobot/janobot/pkg/config"
	"github.com/janobot/janobot/pkg/embedders"
	"github.com/janobot/janobot/pkg/ingest"
	"github.com/janobot/janobot/pkg/llms"
	"github.com/janobot/janobot/pkg/memory"
	"github.com/janobot/janobot/pkg/rag"
	"github.com/janobot/janobot/pkg/server"
	"github.com/janobot/janobot/pkg/tools"
	"github.com/janobot/janobot/pkg/vector"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Host string `help:"Listen host (overrides config)."`
	Port int    `help:"Listen port (overrides config)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	ag, ingester, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ag.RAG().Store().Close(); err != nil {
			slog.Warn("Failed to close vector store", "error", err)
		}
	}()

	if cfg.Ingest.WatchDir != "" {
		watcher, err := ingest.NewWatcher(ingester, cfg.Ingest.WatchDir)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.Ingest.WatchDir, err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Document watcher stopped", "error", err)
			}
		}()
		slog.Info("Watching for documents", "dir", cfg.Ingest.WatchDir)
	}

	srv := server.New(&cfg.Server, ag, ingester)

	fmt.Printf("\n%s ready!\n", cfg.Agent.Name)
	fmt.Printf("   API:     http://%s/\n", srv.Address())
	fmt.Printf("   Health:  http://%s/health\n", srv.Address())
	if config.BoolValue(cfg.Server.Metrics, true) {
		fmt.Printf("   Metrics: http://%s/metrics\n", srv.Address())
	}
	fmt.Printf("   Model:   %s (%s)\n", cfg.LLM.Model, cfg.LLM.Type)
	fmt.Printf("   Store:   %s\n", cfg.RAG.Store.Type)
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

// buildComponents wires the agent and ingester from config.
func buildComponents(ctx context.Context, cfg *config.Config) (*agent.Agent, *ingest.Ingester, error) {
	providers := llms.NewProviderRegistry()
	provider, err := providers.CreateFromConfig(cfg.LLM.Type, cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	var embedder embedders.Embedder
	if cfg.RAG.Store.Type != "keyword" {
		embedder, err = embedders.NewEmbedder(cfg.RAG.Embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	store, err := vector.NewStore(cfg.RAG.Store, embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	pipeline := rag.NewPipeline(store,
		rag.WithTopK(cfg.RAG.TopK),
		rag.WithSnippetLength(cfg.RAG.SnippetLength),
	)

	var memOpts []memory.Option
	if cfg.Memory.Path != "" {
		sqlStore, err := memory.NewSQLiteStore(cfg.Memory.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open memory store: %w", err)
		}
		memOpts = append(memOpts, memory.WithStore(sqlStore))
		slog.Info("Conversation memory persisted", "path", cfg.Memory.Path)
	}
	mem, err := memory.New(cfg.Memory.MaxMessages, memOpts...)
	if err != nil {
		return nil, nil, err
	}

	registry, err := buildToolRegistry(ctx, cfg, pipeline)
	if err != nil {
		return nil, nil, err
	}

	ag, err := agent.New(cfg.Agent.Name, provider,
		agent.WithTools(registry),
		agent.WithMemory(mem),
		agent.WithRAG(pipeline),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithTemperature(cfg.LLM.Temperature),
		agent.WithMaxTokens(cfg.LLM.MaxTokens),
		agent.WithTokenBudget(cfg.Memory.TokenBudget),
	)
	if err != nil {
		return nil, nil, err
	}

	ingester, err := ingest.New(store,
		ingest.ChunkerConfig{Size: cfg.Ingest.ChunkSize, Overlap: cfg.Ingest.ChunkOverlap},
		ingest.WithConcurrency(cfg.Ingest.Concurrency),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ingester: %w", err)
	}

	return ag, ingester, nil
}

func buildToolRegistry(ctx context.Context, cfg *config.Config, pipeline *rag.Pipeline) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	if config.BoolValue(cfg.Tools.Search, true) {
		if err := registry.RegisterTool(tools.NewSearchTool()); err != nil {
			return nil, err
		}
	}
	if config.BoolValue(cfg.Tools.Calculator, true) {
		if err := registry.RegisterTool(tools.NewCalculatorTool()); err != nil {
			return nil, err
		}
	}
	if config.BoolValue(cfg.Tools.Retriever, true) {
		if err := registry.RegisterTool(tools.NewRetrieverTool(pipeline)); err != nil {
			return nil, err
		}
	}

	// MCP servers are best effort: a dead server should not block startup.
	for _, mcpCfg := range cfg.Tools.MCP {
		source, err := tools.NewMCPSource(tools.MCPOptions{
			Name:    mcpCfg.Name,
			URL:     mcpCfg.URL,
			Command: mcpCfg.Command,
			Args:    mcpCfg.Args,
			Env:     mcpCfg.Env,
		})
		if err != nil {
			return nil, fmt.Errorf("invalid MCP server %s: %w", mcpCfg.Name, err)
		}
		if err := registry.RegisterSource(ctx, source); err != nil {
			slog.Warn("Failed to register MCP server", "server", mcpCfg.Name, "error", err)
		}
	}

	return registry, nil
}
