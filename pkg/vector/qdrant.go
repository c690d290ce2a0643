package vector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/janobot/janobot/pkg/embedders"
)

// QdrantStore keeps documents in an external Qdrant server, embedding them
// with the configured embedder. Suited for corpora that outgrow the
// embedded store.
type QdrantStore struct {
	client     *qdrant.Client
	embedder   embedders.Embedder
	collection string

	mu   sync.RWMutex
	docs map[string]Document
}

// QdrantOptions configures a QdrantStore.
type QdrantOptions struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

func NewQdrantStore(embedder embedders.Embedder, opts QdrantOptions) (*QdrantStore, error) {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 6334
	}
	if opts.Collection == "" {
		opts.Collection = "documents"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client for %s:%d: %w", opts.Host, opts.Port, err)
	}

	return &QdrantStore{
		client:     client,
		embedder:   embedder,
		collection: opts.Collection,
		docs:       make(map[string]Document),
	}, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) Add(ctx context.Context, doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	vector, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return "", fmt.Errorf("failed to embed document: %w", err)
	}

	if err := s.ensureCollection(ctx, len(vector)); err != nil {
		return "", err
	}

	payload := make(map[string]*qdrant.Value, len(doc.Metadata)+1)
	contentValue, err := qdrant.NewValue(doc.Content)
	if err != nil {
		return "", fmt.Errorf("failed to convert content: %w", err)
	}
	payload["content"] = contentValue
	for key, value := range doc.Metadata {
		val, err := qdrant.NewValue(value)
		if err != nil {
			return "", fmt.Errorf("failed to convert metadata value for key %s: %w", key, err)
		}
		payload[key] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(doc.ID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payload,
	}
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	}); err != nil {
		return "", fmt.Errorf("failed to upsert point: %w", err)
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	return doc.ID, nil
}

func (s *QdrantStore) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	searchResult, err := s.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]Result, 0, len(searchResult.Result))
	for _, point := range searchResult.Result {
		results = append(results, Result{
			Document: documentFromPoint(point),
			Score:    point.Score,
		})
	}
	return results, nil
}

func documentFromPoint(point *qdrant.ScoredPoint) Document {
	doc := Document{Metadata: make(map[string]string)}

	if point.Id != nil {
		if id, ok := point.Id.PointIdOptions.(*qdrant.PointId_Uuid); ok {
			doc.ID = id.Uuid
		}
	}

	for key, value := range point.Payload {
		strValue, ok := value.Kind.(*qdrant.Value_StringValue)
		if !ok {
			continue
		}
		if key == "content" {
			doc.Content = strValue.StringValue
		} else {
			doc.Metadata[key] = strValue.StringValue
		}
	}
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}
	return doc
}

func (s *QdrantStore) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

func (s *QdrantStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents returns documents added during this process lifetime.
func (s *QdrantStore) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	return out
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

var _ Store = (*QdrantStore)(nil)
