package vector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// KeywordStore is an in-memory store scoring documents by term overlap.
// It needs no embedding provider, which makes it the zero-config default.
//
// The score is the Jaccard index of the query and document term sets:
// |q ∩ d| / |q ∪ d|, over lowercased whitespace-split terms. Documents
// sharing no terms with the query are excluded.
type KeywordStore struct {
	mu     sync.RWMutex
	docs   []Document
	byID   map[string]int
	nextID int
}

func NewKeywordStore() *KeywordStore {
	return &KeywordStore{byID: make(map[string]int)}
}

func (s *KeywordStore) Add(ctx context.Context, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc_%d", s.nextID)
	}
	s.nextID++

	if idx, exists := s.byID[doc.ID]; exists {
		s.docs[idx] = doc
		return doc.ID, nil
	}

	s.byID[doc.ID] = len(s.docs)
	s.docs = append(s.docs, doc)
	return doc.ID, nil
}

func (s *KeywordStore) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Result
	for _, doc := range s.docs {
		score := jaccard(queryTerms, termSet(doc.Content))
		if score > 0 {
			results = append(results, Result{Document: doc, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *KeywordStore) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return Document{}, false
	}
	return s.docs[idx], true
}

func (s *KeywordStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *KeywordStore) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *KeywordStore) Close() error {
	return nil
}

func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, term := range strings.Fields(strings.ToLower(text)) {
		terms[term] = struct{}{}
	}
	return terms
}

func jaccard(a, b map[string]struct{}) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for term := range a {
		if _, ok := b[term]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float32(intersection) / float32(union)
}

var _ Store = (*KeywordStore)(nil)
