package vector

import (
	"context"
	"fmt"
	"testing"
)

// hashEmbedder produces deterministic vectors so identical texts embed
// identically across store instances.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	return vec, nil
}

func (e hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (hashEmbedder) ModelName() string { return "hash-embedder" }

func TestChromemAddAndSearch(t *testing.T) {
	s, err := NewChromemStore(hashEmbedder{}, ChromemOptions{})
	if err != nil {
		t.Fatalf("NewChromemStore failed: %v", err)
	}
	defer s.Close()

	id := addDoc(t, s, "goroutines make concurrency simple")
	addDoc(t, s, "completely different subject matter")

	if s.Count() != 2 {
		t.Errorf("expected 2 documents, got %d", s.Count())
	}

	results, err := s.Search(context.Background(), "goroutines make concurrency simple", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != id {
		t.Errorf("expected %s ranked first, got %s", id, results[0].ID)
	}
}

func TestChromemSearchEmptyStore(t *testing.T) {
	s, err := NewChromemStore(hashEmbedder{}, ChromemOptions{})
	if err != nil {
		t.Fatalf("NewChromemStore failed: %v", err)
	}
	defer s.Close()

	results, err := s.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestChromemPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	opts := ChromemOptions{Collection: "roundtrip", PersistPath: dir}

	s, err := NewChromemStore(hashEmbedder{}, opts)
	if err != nil {
		t.Fatalf("NewChromemStore failed: %v", err)
	}
	id, err := s.Add(context.Background(), Document{Content: "persisted fact about chromem"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewChromemStore(hashEmbedder{}, opts)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if got := reopened.Count(); got != 1 {
		t.Fatalf("Count after reopen = %d, want 1", got)
	}

	results, err := reopened.Search(context.Background(), "persisted fact about chromem", 1)
	if err != nil {
		t.Fatalf("Search after reopen failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result after reopen, got %d", len(results))
	}
	if results[0].ID != id {
		t.Errorf("result ID = %s, want %s", results[0].ID, id)
	}
	if results[0].Content != "persisted fact about chromem" {
		t.Errorf("unexpected content %q", results[0].Content)
	}
}

func TestChromemPersistenceAccumulates(t *testing.T) {
	dir := t.TempDir()
	opts := ChromemOptions{PersistPath: dir}

	for i := 0; i < 3; i++ {
		s, err := NewChromemStore(hashEmbedder{}, opts)
		if err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
		addDoc(t, s, fmt.Sprintf("document number %d", i))
		if err := s.Close(); err != nil {
			t.Fatalf("Close %d failed: %v", i, err)
		}
	}

	s, err := NewChromemStore(hashEmbedder{}, opts)
	if err != nil {
		t.Fatalf("final open failed: %v", err)
	}
	defer s.Close()

	if got := s.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}
