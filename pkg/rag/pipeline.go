// Package rag implements the retrieval pipeline: fetching relevant documents
// and folding them into prompts.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/janobot/janobot/pkg/vector"
)

const augmentTemplate = "Use the following context to answer the question:\n\n%s\n\nQuestion: %s\n\nAnswer:"

// Pipeline retrieves documents from a store and formats them for prompting.
type Pipeline struct {
	store vector.Store

	// topK is the default number of documents per retrieval.
	topK int

	// snippetLength truncates documents in formatted context.
	snippetLength int
}

// Stats describes the indexed corpus.
type Stats struct {
	TotalDocuments int               `json:"total_documents"`
	Documents      []DocumentPreview `json:"documents"`
}

// DocumentPreview is a truncated view of an indexed document.
type DocumentPreview struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithTopK(topK int) Option {
	return func(p *Pipeline) {
		if topK > 0 {
			p.topK = topK
		}
	}
}

func WithSnippetLength(length int) Option {
	return func(p *Pipeline) {
		if length > 0 {
			p.snippetLength = length
		}
	}
}

func NewPipeline(store vector.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		topK:          5,
		snippetLength: 200,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store exposes the underlying document store.
func (p *Pipeline) Store() vector.Store {
	return p.store
}

// Retrieve returns up to topK relevant documents. topK <= 0 uses the
// pipeline default.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) ([]vector.Result, error) {
	if topK <= 0 {
		topK = p.topK
	}
	return p.store.Search(ctx, query, topK)
}

// FormatContext renders retrieved documents as a numbered list, truncating
// each to the snippet length.
func (p *Pipeline) FormatContext(results []vector.Result) string {
	if len(results) == 0 {
		return "No relevant documents found."
	}

	var b strings.Builder
	b.WriteString("Relevant Documents:\n")
	for i, r := range results {
		content := r.Content
		if len(content) > p.snippetLength {
			content = content[:p.snippetLength] + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, content)
	}
	return b.String()
}

// AugmentPrompt retrieves context for the query and wraps both in the
// answer template. Queries with no relevant documents pass through
// unchanged.
func (p *Pipeline) AugmentPrompt(ctx context.Context, query string) (string, error) {
	results, err := p.Retrieve(ctx, query, 0)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}
	if len(results) == 0 {
		return query, nil
	}
	return fmt.Sprintf(augmentTemplate, p.FormatContext(results), query), nil
}

// AddDocument indexes a single document.
func (p *Pipeline) AddDocument(ctx context.Context, content string, metadata map[string]string) (string, error) {
	return p.store.Add(ctx, vector.Document{Content: content, Metadata: metadata})
}

// LoadDocuments indexes a JSON file holding an array of documents. Each entry
// uses its "content" (or "text") field as the body; remaining string fields
// become metadata.
func (p *Pipeline) LoadDocuments(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read documents file: %w", err)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse documents file: %w", err)
	}

	added := 0
	for i, entry := range entries {
		content, metadata := splitEntry(entry)
		if content == "" {
			continue
		}
		if _, err := p.store.Add(ctx, vector.Document{Content: content, Metadata: metadata}); err != nil {
			return added, fmt.Errorf("failed to add document %d: %w", i, err)
		}
		added++
	}
	return added, nil
}

func splitEntry(entry map[string]interface{}) (string, map[string]string) {
	content := ""
	if c, ok := entry["content"].(string); ok {
		content = c
	} else if c, ok := entry["text"].(string); ok {
		content = c
	}

	var metadata map[string]string
	for key, value := range entry {
		if key == "content" || key == "text" {
			continue
		}
		str, ok := value.(string)
		if !ok {
			str = fmt.Sprint(value)
		}
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[key] = str
	}
	return content, metadata
}

// Stats returns the document count with 50-character previews.
func (p *Pipeline) Stats() Stats {
	docs := p.store.Documents()

	stats := Stats{
		TotalDocuments: p.store.Count(),
		Documents:      make([]DocumentPreview, 0, len(docs)),
	}
	for _, doc := range docs {
		preview := doc.Content
		if len(preview) > 50 {
			preview = preview[:50] + "..."
		}
		stats.Documents = append(stats.Documents, DocumentPreview{ID: doc.ID, Preview: preview})
	}
	return stats
}
