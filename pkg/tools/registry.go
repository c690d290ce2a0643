package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/janobot/janobot/pkg/observability"
	"github.com/janobot/janobot/pkg/registry"
)

// RegistryError describes a tool registry failure.
type RegistryError struct {
	Tool    string
	Action  string
	Message string
	Err     error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool registry %s [%s]: %s: %v", e.Action, e.Tool, e.Message, e.Err)
	}
	return fmt.Sprintf("tool registry %s [%s]: %s", e.Action, e.Tool, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Registry holds tools and executes them by name.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Tool](),
	}
}

// RegisterTool adds a tool under its own name.
func (r *Registry) RegisterTool(tool Tool) error {
	info := tool.Info()
	if err := r.Register(info.Name, tool); err != nil {
		return &RegistryError{Tool: info.Name, Action: "register", Message: "registration failed", Err: err}
	}
	return nil
}

// RegisterSource discovers and registers all tools from a source.
func (r *Registry) RegisterSource(ctx context.Context, source Source) error {
	discovered, err := source.DiscoverTools(ctx)
	if err != nil {
		return &RegistryError{Tool: source.Name(), Action: "discover", Message: "tool discovery failed", Err: err}
	}

	for _, tool := range discovered {
		if err := r.RegisterTool(tool); err != nil {
			return err
		}
	}

	slog.Info("Registered tool source", "source", source.Name(), "tools", len(discovered))
	return nil
}

// Execute runs a named tool, recording duration and outcome metrics.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]string) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", &RegistryError{Tool: name, Action: "execute", Message: "tool not found"}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, params)
	duration := time.Since(start)

	observability.RecordToolExecution(name, duration, err)

	if err != nil {
		slog.Warn("Tool execution failed", "tool", name, "duration", duration, "error", err)
		return "", &RegistryError{Tool: name, Action: "execute", Message: "execution failed", Err: err}
	}

	slog.Debug("Tool executed", "tool", name, "duration", duration)
	return result, nil
}

// Infos returns descriptions of all registered tools.
func (r *Registry) Infos() []Info {
	tools := r.List()
	infos := make([]Info, 0, len(tools))
	for _, tool := range tools {
		infos = append(infos, tool.Info())
	}
	return infos
}

// ContextBlock formats registered tools for the agent prompt.
func (r *Registry) ContextBlock() string {
	return FormatToolList(r.Infos())
}
