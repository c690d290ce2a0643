// Package tools defines the tool interface, the registry the agent executes
// through, and the built-in tools.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool type identifiers.
const (
	TypeSearch     = "search"
	TypeCalculator = "calculator"
	TypeSummarizer = "summarizer"
	TypeRetriever  = "retriever"
	TypeCustom     = "custom"
	TypeMCP        = "mcp"
)

// Parameter describes one tool argument.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Info describes a tool for listings and prompt building.
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Parameters  []Parameter `json:"parameters,omitempty"`

	// Source names the tool's origin for remote tools.
	Source string `json:"source,omitempty"`
}

// Tool is an executable capability. Parameters arrive as strings since the
// agent's tool-call protocol is text based.
type Tool interface {
	Info() Info
	Execute(ctx context.Context, params map[string]string) (string, error)
}

// Source discovers tools from an external system.
type Source interface {
	Name() string
	DiscoverTools(ctx context.Context) ([]Tool, error)
}

// FormatToolList renders tools as an "Available Tools:" prompt block.
func FormatToolList(infos []Info) string {
	if len(infos) == 0 {
		return ""
	}

	sorted := make([]Info, len(infos))
	copy(sorted, infos)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString("Available Tools:\n")
	for _, info := range sorted {
		fmt.Fprintf(&b, "- %s: %s\n", info.Name, info.Description)
		for _, param := range info.Parameters {
			required := ""
			if param.Required {
				required = " (required)"
			}
			fmt.Fprintf(&b, "    %s [%s]%s: %s\n", param.Name, param.Type, required, param.Description)
		}
	}
	return b.String()
}
