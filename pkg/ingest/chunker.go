// Package ingest turns files into indexed documents: extraction, chunking,
// directory walks and optional watching.
package ingest

import (
	"fmt"
	"strings"
)

// ChunkerConfig controls how text is split into overlapping windows.
type ChunkerConfig struct {
	// Size is the chunk length in characters.
	Size int `yaml:"size"`

	// Overlap is how many characters consecutive chunks share.
	Overlap int `yaml:"overlap"`
}

func (c *ChunkerConfig) SetDefaults() {
	if c.Size == 0 {
		c.Size = 500
	}
	if c.Overlap == 0 {
		c.Overlap = 50
	}
}

func (c *ChunkerConfig) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("overlap (%d) must be smaller than size (%d)", c.Overlap, c.Size)
	}
	return nil
}

// Chunker splits text into fixed-size character windows.
type Chunker struct {
	config ChunkerConfig
}

func NewChunker(config ChunkerConfig) (*Chunker, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Chunk splits text into windows of Size characters advancing by
// Size-Overlap. Whitespace-only windows are dropped.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	stride := c.config.Size - c.config.Overlap

	var chunks []string
	for start := 0; start < len(text); start += stride {
		end := start + c.config.Size
		if end > len(text) {
			end = len(text)
		}

		chunk := text[start:end]
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(text) {
			break
		}
	}
	return chunks
}
