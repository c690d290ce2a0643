// Package utils provides shared helpers, currently token accounting.
package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// fallbackEncoding is used for models tiktoken does not know about.
	fallbackEncoding = "cl100k_base"

	// Chat format overhead per OpenAI's token counting guidance.
	tokensPerMessage   = 3
	replyPrimingTokens = 3
)

// TokenCounter counts tokens for a model using tiktoken encodings.
// Encodings are cached per model since loading them is expensive.
type TokenCounter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		encodings: make(map[string]*tiktoken.Tiktoken),
	}
}

func (tc *TokenCounter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	tc.mu.RLock()
	enc, ok := tc.encodings[model]
	tc.mu.RUnlock()
	if ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}

	tc.mu.Lock()
	tc.encodings[model] = enc
	tc.mu.Unlock()
	return enc, nil
}

// CountText returns the token count of text for the given model.
// Falls back to a length/4 estimate if no encoding can be loaded.
func (tc *TokenCounter) CountText(model, text string) int {
	enc, err := tc.encodingFor(model)
	if err != nil {
		return EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// CountMessages returns the token count of a chat exchange, including the
// per-message format overhead and reply priming.
func (tc *TokenCounter) CountMessages(model string, contents []string) int {
	total := replyPrimingTokens
	for _, content := range contents {
		total += tokensPerMessage + tc.CountText(model, content)
	}
	return total
}

// FitWithinLimit returns the longest suffix of contents whose message token
// count stays within limit. Newest entries are assumed to be last.
func (tc *TokenCounter) FitWithinLimit(model string, contents []string, limit int) []string {
	if limit <= 0 {
		return contents
	}

	total := replyPrimingTokens
	start := len(contents)
	for i := len(contents) - 1; i >= 0; i-- {
		cost := tokensPerMessage + tc.CountText(model, contents[i])
		if total+cost > limit {
			break
		}
		total += cost
		start = i
	}
	return contents[start:]
}

// EstimateTokens approximates token count as len/4, the usual rule of thumb
// for English text.
func EstimateTokens(text string) int {
	return len(text) / 4
}
