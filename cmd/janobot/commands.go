package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/janobot/janobot/pkg/config"
	"github.com/janobot/janobot/pkg/embedders"
	"github.com/janobot/janobot/pkg/ingest"
	"github.com/janobot/janobot/pkg/vector"
)

// IngestCmd ingests a file or directory into the knowledge base.
type IngestCmd struct {
	Path    string `arg:"" help:"File or directory to ingest." type:"path"`
	Pattern string `help:"Glob pattern for directory ingestion." default:"*"`
	Chunk   bool   `help:"Split documents into chunks." default:"true" negatable:""`
}

func (c *IngestCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	if cfg.RAG.Store.Type == "keyword" {
		fmt.Fprintln(os.Stderr, "Warning: the keyword store is in-memory; documents ingested here are not visible to a running server.")
	}

	var embedder embedders.Embedder
	if cfg.RAG.Store.Type != "keyword" {
		embedder, err = embedders.NewEmbedder(cfg.RAG.Embedder)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	store, err := vector.NewStore(cfg.RAG.Store, embedder)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer store.Close()

	ingester, err := ingest.New(store,
		ingest.ChunkerConfig{Size: cfg.Ingest.ChunkSize, Overlap: cfg.Ingest.ChunkOverlap},
		ingest.WithConcurrency(cfg.Ingest.Concurrency),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()

	info, err := os.Stat(c.Path)
	if err != nil {
		return err
	}

	if info.IsDir() {
		result, err := ingester.IngestDirectory(ctx, c.Path, c.Pattern, c.Chunk)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d documents from %d files\n", result.DocumentsAdded, result.FilesProcessed)
		for _, ingestErr := range result.Errors {
			fmt.Fprintf(os.Stderr, "  error: %s\n", ingestErr)
		}
		return nil
	}

	count, err := ingester.IngestFile(ctx, c.Path, c.Chunk)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d documents from %s\n", count, c.Path)
	return nil
}

// ValidateCmd checks a configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}

	if _, err := config.Load(cli.Config); err != nil {
		return err
	}
	fmt.Printf("Configuration valid: %s\n", cli.Config)
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("janobot version %s\n", version)
	return nil
}
