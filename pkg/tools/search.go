package tools

import (
	"context"
	"fmt"
)

// SearchTool is a placeholder web search returning formatted stub results.
// It keeps the tool-use loop exercisable without an external search API.
type SearchTool struct{}

func NewSearchTool() *SearchTool {
	return &SearchTool{}
}

func (t *SearchTool) Info() Info {
	return Info{
		Name:        "search",
		Description: "Search the web for information",
		Type:        TypeSearch,
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "The search query", Required: true},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, params map[string]string) (string, error) {
	query := params["query"]
	if query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	return fmt.Sprintf("Search results for '%s':\n1. [Placeholder result] No live search backend is configured.", query), nil
}

var _ Tool = (*SearchTool)(nil)
