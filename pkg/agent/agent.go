// Package agent implements the reasoning loop: prompt assembly from memory
// and retrieved context, LLM calls, and text-protocol tool execution.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/janobot/janobot/pkg/llms"
	"github.com/janobot/janobot/pkg/memory"
	"github.com/janobot/janobot/pkg/observability"
	"github.com/janobot/janobot/pkg/rag"
	"github.com/janobot/janobot/pkg/tools"
	"github.com/janobot/janobot/pkg/utils"
)

// State is the agent's execution phase.
type State string

const (
	StateIdle       State = "idle"
	StateThinking   State = "thinking"
	StateExecuting  State = "executing"
	StateRetrieving State = "retrieving"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// Result is the outcome of one reasoning run.
type Result struct {
	Response   string `json:"response"`
	State      State  `json:"state"`
	TokensUsed int    `json:"tokens_used"`
	Iterations int    `json:"iterations"`
}

// Status reports the agent's configuration and runtime statistics.
type Status struct {
	Name            string        `json:"name"`
	Model           string        `json:"model"`
	State           State         `json:"state"`
	ToolsRegistered int           `json:"tools_registered"`
	Memory          *memory.Stats `json:"memory,omitempty"`
	RAG             *rag.Stats    `json:"rag,omitempty"`
}

// Agent orchestrates memory, retrieval, tools and the LLM provider.
type Agent struct {
	name     string
	provider llms.Provider
	tools    *tools.Registry
	memory   *memory.ConversationMemory
	rag      *rag.Pipeline
	counter  *utils.TokenCounter

	maxIterations int
	temperature   float64
	maxTokens     int
	tokenBudget   int

	mu    sync.RWMutex
	state State
}

// Option configures an Agent.
type Option func(*Agent)

func WithTools(registry *tools.Registry) Option {
	return func(a *Agent) {
		a.tools = registry
	}
}

func WithMemory(mem *memory.ConversationMemory) Option {
	return func(a *Agent) {
		a.memory = mem
	}
}

// WithRAG enables retrieval augmented prompting.
func WithRAG(pipeline *rag.Pipeline) Option {
	return func(a *Agent) {
		a.rag = pipeline
	}
}

func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(a *Agent) {
		a.temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithTokenBudget caps the conversation history included in prompts to a
// token budget, dropping the oldest turns first.
func WithTokenBudget(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.tokenBudget = n
		}
	}
}

// New creates an agent around an LLM provider. Without options it gets an
// empty tool registry, a default-capacity memory and no retrieval.
func New(name string, provider llms.Provider, opts ...Option) (*Agent, error) {
	if name == "" {
		name = "JanoBot"
	}
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}

	a := &Agent{
		name:          name,
		provider:      provider,
		counter:       utils.NewTokenCounter(),
		maxIterations: 10,
		temperature:   0.7,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.tools == nil {
		a.tools = tools.NewRegistry()
	}
	if a.memory == nil {
		mem, err := memory.New(0)
		if err != nil {
			return nil, err
		}
		a.memory = mem
	}

	return a, nil
}

func (a *Agent) Name() string { return a.name }

// Tools exposes the tool registry for registration and direct execution.
func (a *Agent) Tools() *tools.Registry { return a.tools }

// Memory exposes the conversation memory.
func (a *Agent) Memory() *memory.ConversationMemory { return a.memory }

// RAG returns the retrieval pipeline, or nil when retrieval is disabled.
func (a *Agent) RAG() *rag.Pipeline { return a.rag }

// State returns the current execution phase.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// SystemPrompt builds the agent's system message, listing capabilities and
// the tool-call protocol.
func (a *Agent) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI assistant capable of:\n", a.name)
	b.WriteString("- Answering questions and providing explanations\n")
	b.WriteString("- Using tools to retrieve information or perform actions\n")
	b.WriteString("- Maintaining conversation context and memory\n")
	if a.rag != nil {
		b.WriteString("- Retrieving relevant documents from a knowledge base\n")
	}
	if names := a.tools.Names(); len(names) > 0 {
		fmt.Fprintf(&b, "- Using available tools: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\nTo use a tool, respond with exactly:\n")
	b.WriteString("[TOOL_CALL] tool_name: param1=value1, param2=value2 [/TOOL_CALL]\n")
	b.WriteString("and wait for the result before answering.\n")
	b.WriteString("\nRespond helpfully and accurately. Use tools when necessary.")
	return b.String()
}

// prepareContext assembles the user message from conversation history, the
// (optionally augmented) query and the tool listing.
func (a *Agent) prepareContext(ctx context.Context, query string, useRAG bool) (string, error) {
	var parts []string

	if history := a.memory.Context(); history != "" {
		if a.tokenBudget > 0 {
			lines := a.counter.FitWithinLimit(a.provider.ModelName(), strings.Split(history, "\n"), a.tokenBudget)
			history = strings.Join(lines, "\n")
		}
		if history != "" {
			parts = append(parts, fmt.Sprintf("Conversation History:\n%s\n", history))
		}
	}

	prompt := query
	if useRAG && a.rag != nil {
		a.setState(StateRetrieving)
		augmented, err := a.rag.AugmentPrompt(ctx, query)
		if err != nil {
			return "", err
		}
		observability.RecordRetrieval()
		prompt = augmented
		a.setState(StateThinking)
	}
	parts = append(parts, prompt)

	if block := a.tools.ContextBlock(); block != "" {
		parts = append(parts, block)
	}

	return strings.Join(parts, "\n"), nil
}

// Think runs the reasoning loop for a query. Each iteration generates a
// response and, if it contains a tool call, executes the tool and feeds the
// result back. maxIterations <= 0 uses the agent default.
func (a *Agent) Think(ctx context.Context, query string, useRAG bool, maxIterations int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if maxIterations <= 0 {
		maxIterations = a.maxIterations
	}

	start := time.Now()
	a.setState(StateThinking)

	userContent, err := a.prepareContext(ctx, query, useRAG)
	if err != nil {
		return a.fail(start, 0, fmt.Errorf("failed to prepare context: %w", err))
	}

	if _, err := a.memory.AddMessage(llms.RoleUser, query, nil); err != nil {
		return a.fail(start, 0, err)
	}

	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: a.SystemPrompt()},
		{Role: llms.RoleUser, Content: userContent},
	}

	var response string
	tokens := 0
	iterations := 0

	for iterations < maxIterations {
		iterations++

		resp, err := a.provider.Generate(ctx, &llms.Request{
			Messages:    messages,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		})
		if err != nil {
			return a.fail(start, tokens, fmt.Errorf("generation failed: %w", err))
		}
		response = resp.Content

		used := resp.TokensUsed
		if used == 0 {
			used = a.estimateTokens(messages, response)
		}
		tokens += used

		call := ParseToolCall(response)
		if call == nil {
			break
		}

		a.setState(StateExecuting)
		result, err := a.tools.Execute(ctx, call.Name, call.Params)
		if err != nil {
			result = fmt.Sprintf("Tool execution error: %v", err)
		}
		a.setState(StateThinking)

		messages = append(messages,
			llms.Message{Role: llms.RoleAssistant, Content: response},
			llms.Message{Role: llms.RoleUser, Content: fmt.Sprintf(
				"Tool %s returned:\n%s\n\nUse this result to answer the original question.",
				call.Name, result)},
		)
	}

	if _, err := a.memory.AddMessage(llms.RoleAssistant, response, nil); err != nil {
		return a.fail(start, tokens, err)
	}

	a.setState(StateComplete)
	observability.RecordQuery(time.Since(start), tokens, nil)

	return &Result{
		Response:   response,
		State:      StateComplete,
		TokensUsed: tokens,
		Iterations: iterations,
	}, nil
}

func (a *Agent) fail(start time.Time, tokens int, err error) (*Result, error) {
	a.setState(StateError)
	observability.RecordQuery(time.Since(start), tokens, err)
	return nil, err
}

// estimateTokens approximates usage when the provider reports none.
func (a *Agent) estimateTokens(messages []llms.Message, response string) int {
	contents := make([]string, 0, len(messages)+1)
	for _, msg := range messages {
		contents = append(contents, msg.Content)
	}
	contents = append(contents, response)
	return a.counter.CountMessages(a.provider.ModelName(), contents)
}

// ExecuteTool runs a tool directly, outside the reasoning loop.
func (a *Agent) ExecuteTool(ctx context.Context, name string, params map[string]string) (string, error) {
	a.setState(StateExecuting)
	result, err := a.tools.Execute(ctx, name, params)
	if err != nil {
		a.setState(StateError)
		return "", err
	}
	a.setState(StateIdle)
	return result, nil
}

// Status reports agent configuration and statistics.
func (a *Agent) Status() Status {
	status := Status{
		Name:            a.name,
		Model:           a.provider.ModelName(),
		State:           a.State(),
		ToolsRegistered: a.tools.Count(),
	}

	memStats := a.memory.Stats()
	status.Memory = &memStats

	if a.rag != nil {
		ragStats := a.rag.Stats()
		status.RAG = &ragStats
	}

	return status
}

// Reset returns the agent to idle and clears conversation memory.
func (a *Agent) Reset() error {
	a.setState(StateIdle)
	return a.memory.Clear()
}
