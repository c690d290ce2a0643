package rag

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janobot/janobot/pkg/vector"
)

func newTestPipeline(t *testing.T, docs ...string) *Pipeline {
	t.Helper()
	store := vector.NewKeywordStore()
	for _, doc := range docs {
		if _, err := store.Add(context.Background(), vector.Document{Content: doc}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	return NewPipeline(store)
}

func TestRetrieve(t *testing.T) {
	p := newTestPipeline(t,
		"gophers love concurrency",
		"cats love sleeping",
	)

	results, err := p.Retrieve(context.Background(), "gophers concurrency", 0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "gophers love concurrency" {
		t.Errorf("unexpected result: %q", results[0].Content)
	}
}

func TestFormatContextEmpty(t *testing.T) {
	p := newTestPipeline(t)

	got := p.FormatContext(nil)
	if got != "No relevant documents found." {
		t.Errorf("unexpected empty context: %q", got)
	}
}

func TestFormatContextNumbering(t *testing.T) {
	p := newTestPipeline(t)

	results := []vector.Result{
		{Document: vector.Document{Content: "first"}},
		{Document: vector.Document{Content: "second"}},
	}
	got := p.FormatContext(results)

	if !strings.HasPrefix(got, "Relevant Documents:\n") {
		t.Errorf("missing header: %q", got)
	}
	if !strings.Contains(got, "1. first\n") || !strings.Contains(got, "2. second\n") {
		t.Errorf("missing numbered entries: %q", got)
	}
}

func TestFormatContextTruncation(t *testing.T) {
	p := newTestPipeline(t)

	long := strings.Repeat("x", 250)
	got := p.FormatContext([]vector.Result{
		{Document: vector.Document{Content: long}},
	})

	if !strings.Contains(got, strings.Repeat("x", 200)+"...") {
		t.Error("expected truncation at 200 characters with ellipsis")
	}
	if strings.Contains(got, strings.Repeat("x", 201)) {
		t.Error("content not truncated")
	}
}

func TestAugmentPrompt(t *testing.T) {
	p := newTestPipeline(t, "the capital of France is Paris")

	got, err := p.AugmentPrompt(context.Background(), "capital France")
	if err != nil {
		t.Fatalf("AugmentPrompt failed: %v", err)
	}

	if !strings.HasPrefix(got, "Use the following context to answer the question:") {
		t.Errorf("missing template prefix: %q", got)
	}
	if !strings.Contains(got, "the capital of France is Paris") {
		t.Error("retrieved document missing from prompt")
	}
	if !strings.Contains(got, "Question: capital France") {
		t.Error("question missing from prompt")
	}
	if !strings.HasSuffix(got, "Answer:") {
		t.Errorf("prompt should end with Answer:, got %q", got)
	}
}

func TestAugmentPromptNoMatches(t *testing.T) {
	p := newTestPipeline(t, "unrelated content")

	got, err := p.AugmentPrompt(context.Background(), "zzz qqq")
	if err != nil {
		t.Fatalf("AugmentPrompt failed: %v", err)
	}
	if got != "zzz qqq" {
		t.Errorf("expected passthrough query, got %q", got)
	}
}

func TestLoadDocuments(t *testing.T) {
	entries := []map[string]interface{}{
		{"content": "doc one", "source": "a.txt"},
		{"text": "doc two"},
		{"source": "no-content.txt"},
	}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "docs.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	p := newTestPipeline(t)
	added, err := p.LoadDocuments(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 documents added, got %d", added)
	}

	results, err := p.Retrieve(context.Background(), "doc one", 0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected loaded document to be retrievable")
	}
	if results[0].Metadata["source"] != "a.txt" {
		t.Errorf("metadata not preserved: %v", results[0].Metadata)
	}
}

func TestStatsPreviews(t *testing.T) {
	long := strings.Repeat("a", 80)
	p := newTestPipeline(t, "short doc", long)

	stats := p.Stats()
	if stats.TotalDocuments != 2 {
		t.Fatalf("expected 2 documents, got %d", stats.TotalDocuments)
	}

	for _, preview := range stats.Documents {
		if len(preview.Preview) > 53 {
			t.Errorf("preview too long: %d chars", len(preview.Preview))
		}
	}
}
