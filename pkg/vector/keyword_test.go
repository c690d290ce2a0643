package vector

import (
	"context"
	"fmt"
	"math"
	"testing"
)

func addDoc(t *testing.T, s Store, content string) string {
	t.Helper()
	id, err := s.Add(context.Background(), Document{Content: content})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return id
}

func TestKeywordAddAssignsIDs(t *testing.T) {
	s := NewKeywordStore()

	id0 := addDoc(t, s, "first document")
	id1 := addDoc(t, s, "second document")

	if id0 != "doc_0" || id1 != "doc_1" {
		t.Errorf("expected sequential IDs, got %s, %s", id0, id1)
	}
	if s.Count() != 2 {
		t.Errorf("expected 2 documents, got %d", s.Count())
	}
}

func TestKeywordSearchScoring(t *testing.T) {
	s := NewKeywordStore()
	addDoc(t, s, "the quick brown fox")
	addDoc(t, s, "the lazy dog")
	addDoc(t, s, "completely unrelated text")

	results, err := s.Search(context.Background(), "quick fox", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "the quick brown fox" {
		t.Errorf("unexpected top result: %q", results[0].Content)
	}

	// query {quick, fox}, doc {the, quick, brown, fox}: 2 shared, 4 total
	want := float32(2) / float32(4)
	if math.Abs(float64(results[0].Score-want)) > 1e-6 {
		t.Errorf("expected score %g, got %g", want, results[0].Score)
	}
}

func TestKeywordSearchExcludesZeroOverlap(t *testing.T) {
	s := NewKeywordStore()
	addDoc(t, s, "alpha beta gamma")

	results, err := s.Search(context.Background(), "delta epsilon", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for zero-overlap query, got %d", len(results))
	}
}

func TestKeywordSearchCaseInsensitive(t *testing.T) {
	s := NewKeywordStore()
	addDoc(t, s, "Go Is Great")

	results, err := s.Search(context.Background(), "go great", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a case-insensitive match, got %d results", len(results))
	}
}

func TestKeywordSearchTopK(t *testing.T) {
	s := NewKeywordStore()
	for i := 0; i < 10; i++ {
		addDoc(t, s, fmt.Sprintf("shared term plus extra%d", i))
	}

	results, err := s.Search(context.Background(), "shared term", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestKeywordSearchOrdering(t *testing.T) {
	s := NewKeywordStore()
	addDoc(t, s, "apple banana cherry date")
	addDoc(t, s, "apple banana")

	results, err := s.Search(context.Background(), "apple banana", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "apple banana" {
		t.Errorf("expected exact match ranked first, got %q", results[0].Content)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by descending score")
	}
}

func TestKeywordGet(t *testing.T) {
	s := NewKeywordStore()
	id := addDoc(t, s, "findable")

	doc, ok := s.Get(id)
	if !ok {
		t.Fatal("expected document to be found")
	}
	if doc.Content != "findable" {
		t.Errorf("unexpected content: %q", doc.Content)
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("expected missing ID to not be found")
	}
}

func TestKeywordUpsertByID(t *testing.T) {
	s := NewKeywordStore()

	if _, err := s.Add(context.Background(), Document{ID: "fixed", Content: "v1"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := s.Add(context.Background(), Document{ID: "fixed", Content: "v2"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if s.Count() != 1 {
		t.Errorf("expected 1 document after upsert, got %d", s.Count())
	}
	doc, _ := s.Get("fixed")
	if doc.Content != "v2" {
		t.Errorf("expected updated content, got %q", doc.Content)
	}
}

func TestKeywordEmptyQuery(t *testing.T) {
	s := NewKeywordStore()
	addDoc(t, s, "something")

	results, err := s.Search(context.Background(), "   ", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for empty query, got %d", len(results))
	}
}
