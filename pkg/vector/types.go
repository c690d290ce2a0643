// Package vector provides document stores for retrieval.
//
// Three backends are available: an in-memory keyword store that needs no
// embedder, an embedded chromem-go store, and an external Qdrant server.
package vector

import "context"

// Document is a stored piece of text with optional metadata.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result is a document with its relevance score for a query.
type Result struct {
	Document
	Score float32 `json:"score"`
}

// Store indexes documents and retrieves them by relevance.
type Store interface {
	// Add indexes a document. An empty ID is assigned.
	Add(ctx context.Context, doc Document) (string, error)

	// Search returns up to topK documents ranked by relevance.
	Search(ctx context.Context, query string, topK int) ([]Result, error)

	// Get returns a document by ID.
	Get(id string) (Document, bool)

	// Count returns the number of indexed documents.
	Count() int

	// Documents returns all indexed documents.
	Documents() []Document

	Close() error
}
