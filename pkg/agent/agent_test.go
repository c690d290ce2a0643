package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/janobot/janobot/pkg/llms"
	"github.com/janobot/janobot/pkg/rag"
	"github.com/janobot/janobot/pkg/tools"
	"github.com/janobot/janobot/pkg/vector"
)

// scriptedProvider returns canned responses in order and records requests.
type scriptedProvider struct {
	responses []string
	requests  []*llms.Request
	err       error
}

func (p *scriptedProvider) Generate(ctx context.Context, req *llms.Request) (*llms.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.requests = append(p.requests, req)
	idx := len(p.requests) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return &llms.Response{Content: p.responses[idx], TokensUsed: 10}, nil
}

func (p *scriptedProvider) ModelName() string { return "test-model" }

type echoTool struct {
	calls []map[string]string
}

func (t *echoTool) Info() tools.Info {
	return tools.Info{Name: "echo", Description: "Echo back the input"}
}

func (t *echoTool) Execute(ctx context.Context, params map[string]string) (string, error) {
	t.calls = append(t.calls, params)
	return "echo: " + params["text"], nil
}

func TestThinkPlainAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"The answer is 42."}}
	a, err := New("TestBot", provider)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := a.Think(context.Background(), "What is the answer?", false, 0)
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}

	if result.Response != "The answer is 42." {
		t.Errorf("unexpected response %q", result.Response)
	}
	if result.State != StateComplete {
		t.Errorf("state = %s, want %s", result.State, StateComplete)
	}
	if result.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", result.Iterations)
	}
	if result.TokensUsed != 10 {
		t.Errorf("tokens = %d, want 10", result.TokensUsed)
	}

	history := a.Memory().GetHistory(0)
	if len(history) != 2 {
		t.Fatalf("expected 2 memory messages, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestThinkWithToolCall(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"[TOOL_CALL] echo: text=hello [/TOOL_CALL]",
		"The tool said: echo: hello",
	}}

	registry := tools.NewRegistry()
	tool := &echoTool{}
	if err := registry.RegisterTool(tool); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	a, err := New("TestBot", provider, WithTools(registry))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := a.Think(context.Background(), "Say hello", false, 0)
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}

	if result.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", result.Iterations)
	}
	if result.Response != "The tool said: echo: hello" {
		t.Errorf("unexpected response %q", result.Response)
	}
	if len(tool.calls) != 1 || tool.calls[0]["text"] != "hello" {
		t.Errorf("unexpected tool calls: %v", tool.calls)
	}

	// The second request must carry the tool result back to the model.
	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "echo: hello") {
		t.Errorf("tool result not fed back: %q", last.Content)
	}
}

func TestThinkUnknownToolFeedsErrorBack(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"[TOOL_CALL] missing: x=1 [/TOOL_CALL]",
		"I could not use that tool.",
	}}

	a, err := New("TestBot", provider)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := a.Think(context.Background(), "Do something", false, 0)
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	if result.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", result.Iterations)
	}

	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "Tool execution error") {
		t.Errorf("expected execution error fed back, got %q", last.Content)
	}
}

func TestThinkIterationLimit(t *testing.T) {
	// Every response asks for another tool call.
	provider := &scriptedProvider{responses: []string{
		"[TOOL_CALL] echo: text=again [/TOOL_CALL]",
	}}

	registry := tools.NewRegistry()
	if err := registry.RegisterTool(&echoTool{}); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	a, err := New("TestBot", provider, WithTools(registry))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := a.Think(context.Background(), "Loop forever", false, 3)
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	if result.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", result.Iterations)
	}
}

func TestThinkWithRAG(t *testing.T) {
	store := vector.NewKeywordStore()
	if _, err := store.Add(context.Background(), vector.Document{Content: "Go uses goroutines for concurrency"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	pipeline := rag.NewPipeline(store)

	provider := &scriptedProvider{responses: []string{"Goroutines."}}
	a, err := New("TestBot", provider, WithRAG(pipeline))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := a.Think(context.Background(), "goroutines concurrency", true, 0); err != nil {
		t.Fatalf("Think failed: %v", err)
	}

	user := provider.requests[0].Messages[1]
	if !strings.Contains(user.Content, "Use the following context to answer the question:") {
		t.Errorf("prompt not augmented:\n%s", user.Content)
	}
	if !strings.Contains(user.Content, "goroutines") {
		t.Errorf("retrieved document missing from prompt:\n%s", user.Content)
	}
}

func TestThinkTokenBudgetTrimsHistory(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"ok"}}
	a, err := New("TestBot", provider, WithTokenBudget(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := a.Memory().AddMessage("user", "an earlier question about something", nil); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if _, err := a.Memory().AddMessage("assistant", "an earlier answer", nil); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	if _, err := a.Think(context.Background(), "new question", false, 0); err != nil {
		t.Fatalf("Think failed: %v", err)
	}

	// A one-token budget cannot fit any history line.
	user := provider.requests[0].Messages[1]
	if strings.Contains(user.Content, "Conversation History:") {
		t.Errorf("history should be trimmed away:\n%s", user.Content)
	}
}

func TestThinkEmptyQuery(t *testing.T) {
	a, err := New("TestBot", &scriptedProvider{responses: []string{"x"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := a.Think(context.Background(), "  ", false, 0); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestThinkGenerationError(t *testing.T) {
	provider := &scriptedProvider{err: fmt.Errorf("provider down")}
	a, err := New("TestBot", provider)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := a.Think(context.Background(), "Hello", false, 0); err == nil {
		t.Fatal("expected generation error")
	}
	if a.State() != StateError {
		t.Errorf("state = %s, want %s", a.State(), StateError)
	}
}

func TestExecuteTool(t *testing.T) {
	registry := tools.NewRegistry()
	if err := registry.RegisterTool(&echoTool{}); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	a, err := New("TestBot", &scriptedProvider{responses: []string{"x"}}, WithTools(registry))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := a.ExecuteTool(context.Background(), "echo", map[string]string{"text": "hi"})
	if err != nil {
		t.Fatalf("ExecuteTool failed: %v", err)
	}
	if result != "echo: hi" {
		t.Errorf("unexpected result %q", result)
	}
	if a.State() != StateIdle {
		t.Errorf("state = %s, want %s", a.State(), StateIdle)
	}

	if _, err := a.ExecuteTool(context.Background(), "missing", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if a.State() != StateError {
		t.Errorf("state = %s, want %s", a.State(), StateError)
	}
}

func TestStatusAndReset(t *testing.T) {
	store := vector.NewKeywordStore()
	pipeline := rag.NewPipeline(store)
	provider := &scriptedProvider{responses: []string{"Hello there."}}

	a, err := New("TestBot", provider, WithRAG(pipeline))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := a.Think(context.Background(), "Hi", false, 0); err != nil {
		t.Fatalf("Think failed: %v", err)
	}

	status := a.Status()
	if status.Name != "TestBot" || status.Model != "test-model" {
		t.Errorf("unexpected identity: %+v", status)
	}
	if status.State != StateComplete {
		t.Errorf("state = %s, want %s", status.State, StateComplete)
	}
	if status.Memory == nil || status.Memory.TotalMessages != 2 {
		t.Errorf("unexpected memory stats: %+v", status.Memory)
	}
	if status.RAG == nil {
		t.Error("expected RAG stats")
	}

	if err := a.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if a.State() != StateIdle {
		t.Errorf("state after reset = %s, want %s", a.State(), StateIdle)
	}
	if got := a.Memory().Stats().TotalMessages; got != 0 {
		t.Errorf("memory not cleared: %d messages", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	registry := tools.NewRegistry()
	if err := registry.RegisterTool(&echoTool{}); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}
	if err := registry.RegisterTool(tools.NewCalculatorTool()); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	a, err := New("TestBot", &scriptedProvider{responses: []string{"x"}}, WithTools(registry))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	prompt := a.SystemPrompt()
	if !strings.HasPrefix(prompt, "You are TestBot, an AI assistant") {
		t.Errorf("unexpected prompt start: %q", prompt)
	}
	if !strings.Contains(prompt, "calculator, echo") {
		t.Errorf("tool names missing or unsorted:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[TOOL_CALL]") {
		t.Errorf("tool protocol missing:\n%s", prompt)
	}
}
