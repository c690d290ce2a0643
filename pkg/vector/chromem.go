package vector

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/janobot/janobot/pkg/embedders"
)

// ChromemStore is an embedded semantic store backed by chromem-go.
// Documents are embedded on add and queries on search, using the
// configured embedder. With a persist path the database writes each
// document to disk as it is added and reloads them on open.
type ChromemStore struct {
	db       *chromem.DB
	col      *chromem.Collection
	embedder embedders.Embedder

	mu   sync.RWMutex
	docs map[string]Document
}

// ChromemOptions configures a ChromemStore.
type ChromemOptions struct {
	// Collection names the document collection.
	Collection string

	// PersistPath enables persistence under this directory. It is
	// created if missing.
	PersistPath string
}

func NewChromemStore(embedder embedders.Embedder, opts ChromemOptions) (*ChromemStore, error) {
	if opts.Collection == "" {
		opts.Collection = "documents"
	}

	var db *chromem.DB
	if opts.PersistPath != "" {
		loaded, err := chromem.NewPersistentDB(opts.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database at %s: %w", opts.PersistPath, err)
		}
		db = loaded
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are computed by our embedder before documents reach
	// chromem, so its own embedding hook must never fire.
	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding requested for pre-embedded document")
	}

	col, err := db.GetOrCreateCollection(opts.Collection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", opts.Collection, err)
	}

	return &ChromemStore{
		db:       db,
		col:      col,
		embedder: embedder,
		docs:     make(map[string]Document),
	}, nil
}

func (s *ChromemStore) Add(ctx context.Context, doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	vector, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return "", fmt.Errorf("failed to embed document: %w", err)
	}

	chromemDoc := chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  doc.Metadata,
		Embedding: vector,
	}
	if err := s.col.AddDocuments(ctx, []chromem.Document{chromemDoc}, runtime.NumCPU()); err != nil {
		return "", fmt.Errorf("failed to add document: %w", err)
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	return doc.ID, nil
}

func (s *ChromemStore) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}
	if count := s.col.Count(); count < topK {
		if count == 0 {
			return nil, nil
		}
		topK = count
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{
			Document: Document{ID: r.ID, Content: r.Content, Metadata: r.Metadata},
			Score:    r.Similarity,
		})
	}
	return out, nil
}

func (s *ChromemStore) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

func (s *ChromemStore) Count() int {
	return s.col.Count()
}

// Documents returns documents added during this process lifetime. Documents
// reloaded from a persisted database are searchable but not listed here.
func (s *ChromemStore) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	return out
}

// Close releases nothing; a persistent database writes through on
// every add, so there is no final flush.
func (s *ChromemStore) Close() error {
	return nil
}

var _ Store = (*ChromemStore)(nil)
