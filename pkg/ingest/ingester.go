package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/janobot/janobot/pkg/vector"
)

// recentLogSize bounds the ingestion log entries reported in stats.
const recentLogSize = 5

// LogEntry records one ingestion attempt.
type LogEntry struct {
	File      string    `json:"file"`
	Documents int       `json:"documents"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Stats summarizes ingestion history.
type Stats struct {
	TotalIngestions int        `json:"total_ingestions"`
	TotalDocuments  int        `json:"total_documents"`
	Recent          []LogEntry `json:"recent"`
}

// DirectoryResult is the outcome of a directory ingestion.
type DirectoryResult struct {
	FilesProcessed int      `json:"files_processed"`
	DocumentsAdded int      `json:"documents_added"`
	Errors         []string `json:"errors,omitempty"`
}

// Ingester extracts, chunks and indexes files into a vector store.
type Ingester struct {
	store       vector.Store
	chunker     *Chunker
	concurrency int

	mu        sync.Mutex
	log       []LogEntry
	totalDocs int
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithConcurrency bounds parallel file ingestion in IngestDirectory.
func WithConcurrency(n int) Option {
	return func(ing *Ingester) {
		if n > 0 {
			ing.concurrency = n
		}
	}
}

func New(store vector.Store, chunkerConfig ChunkerConfig, opts ...Option) (*Ingester, error) {
	chunker, err := NewChunker(chunkerConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid chunker config: %w", err)
	}

	ing := &Ingester{
		store:       store,
		chunker:     chunker,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing, nil
}

// IngestFile indexes one file and returns the number of documents added.
// With chunk=false, extracted text is stored whole instead of split.
func (ing *Ingester) IngestFile(ctx context.Context, path string, chunk bool) (int, error) {
	added, err := ing.ingest(ctx, path, chunk)

	entry := LogEntry{
		File:      path,
		Documents: added,
		Timestamp: time.Now().UTC(),
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	ing.mu.Lock()
	ing.log = append(ing.log, entry)
	ing.totalDocs += added
	ing.mu.Unlock()

	if err != nil {
		return 0, err
	}

	slog.Info("Ingested file", "file", path, "documents", added)
	return added, nil
}

func (ing *Ingester) ingest(ctx context.Context, path string, chunk bool) (int, error) {
	items, err := extract(ctx, path)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, item := range items {
		pieces := []string{item.content}
		if chunk && item.chunkable {
			pieces = ing.chunker.Chunk(item.content)
		}

		for i, piece := range pieces {
			metadata := make(map[string]string, len(item.metadata)+1)
			for k, v := range item.metadata {
				metadata[k] = v
			}
			if len(pieces) > 1 {
				metadata["chunk"] = fmt.Sprintf("%d/%d", i+1, len(pieces))
			}

			if _, err := ing.store.Add(ctx, vector.Document{Content: piece, Metadata: metadata}); err != nil {
				return added, fmt.Errorf("failed to index chunk: %w", err)
			}
			added++
		}
	}
	return added, nil
}

// IngestDirectory indexes all files in dir matching the glob pattern.
// Per-file failures are collected, not fatal.
func (ing *Ingester) IngestDirectory(ctx context.Context, dir, pattern string, chunk bool) (*DirectoryResult, error) {
	if pattern == "" {
		pattern = "*"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := &DirectoryResult{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.concurrency)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if !matched {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			added, err := ing.IngestFile(ctx, path, chunk)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				return nil
			}
			result.FilesProcessed++
			result.DocumentsAdded += added
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// Stats reports ingestion totals and the most recent log entries.
func (ing *Ingester) Stats() Stats {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	recent := ing.log
	if len(recent) > recentLogSize {
		recent = recent[len(recent)-recentLogSize:]
	}

	out := make([]LogEntry, len(recent))
	copy(out, recent)

	return Stats{
		TotalIngestions: len(ing.log),
		TotalDocuments:  ing.totalDocs,
		Recent:          out,
	}
}
