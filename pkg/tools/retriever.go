package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/janobot/janobot/pkg/observability"
	"github.com/janobot/janobot/pkg/rag"
)

// RetrieverTool searches the knowledge base through the RAG pipeline,
// letting the agent pull documents mid-reasoning.
type RetrieverTool struct {
	pipeline *rag.Pipeline
}

func NewRetrieverTool(pipeline *rag.Pipeline) *RetrieverTool {
	return &RetrieverTool{pipeline: pipeline}
}

func (t *RetrieverTool) Info() Info {
	return Info{
		Name:        "retriever",
		Description: "Search the knowledge base for relevant documents",
		Type:        TypeRetriever,
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "The search query", Required: true},
			{Name: "top_k", Type: "int", Description: "Number of documents to return"},
		},
	}
}

func (t *RetrieverTool) Execute(ctx context.Context, params map[string]string) (string, error) {
	query := params["query"]
	if query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	topK := 0
	if raw := params["top_k"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("invalid top_k %q", raw)
		}
		topK = parsed
	}

	results, err := t.pipeline.Retrieve(ctx, query, topK)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}
	observability.RecordRetrieval()

	return t.pipeline.FormatContext(results), nil
}

var _ Tool = (*RetrieverTool)(nil)
