package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/janobot/janobot/pkg/agent"
	"github.com/janobot/janobot/pkg/config"
	"github.com/janobot/janobot/pkg/ingest"
	"github.com/janobot/janobot/pkg/llms"
	"github.com/janobot/janobot/pkg/rag"
	"github.com/janobot/janobot/pkg/tools"
	"github.com/janobot/janobot/pkg/vector"
)

type cannedProvider struct {
	response string
}

func (p *cannedProvider) Generate(ctx context.Context, req *llms.Request) (*llms.Response, error) {
	return &llms.Response{Content: p.response, TokensUsed: 7}, nil
}

func (p *cannedProvider) ModelName() string { return "test-model" }

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()

	store := vector.NewKeywordStore()
	pipeline := rag.NewPipeline(store)

	registry := tools.NewRegistry()
	if err := registry.RegisterTool(tools.NewCalculatorTool()); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	ag, err := agent.New("TestBot", &cannedProvider{response: "Hello!"},
		agent.WithTools(registry),
		agent.WithRAG(pipeline),
	)
	if err != nil {
		t.Fatalf("agent.New failed: %v", err)
	}

	ingester, err := ingest.New(store, ingest.ChunkerConfig{})
	if err != nil {
		t.Fatalf("ingest.New failed: %v", err)
	}

	cfg := &config.ServerConfig{}
	srv := New(cfg, ag, ingester)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, srv
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]interface{} {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func postJSON(t *testing.T, url string, payload interface{}, wantStatus int) map[string]interface{} {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestRootEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	body := getJSON(t, ts.URL+"/", http.StatusOK)
	if body["message"] != "TestBot API is running" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	endpoints, ok := body["endpoints"].(map[string]interface{})
	if !ok || endpoints["query"] != "/query" {
		t.Errorf("unexpected endpoints: %v", body["endpoints"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	body := getJSON(t, ts.URL+"/health", http.StatusOK)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if body["agent_initialized"] != true {
		t.Errorf("agent_initialized = %v", body["agent_initialized"])
	}
	if body["agent_state"] != "idle" {
		t.Errorf("agent_state = %v", body["agent_state"])
	}
}

func TestQueryEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	body := postJSON(t, ts.URL+"/query", map[string]interface{}{"query": "Hi"}, http.StatusOK)
	if body["response"] != "Hello!" {
		t.Errorf("response = %v", body["response"])
	}
	if body["state"] != "complete" {
		t.Errorf("state = %v", body["state"])
	}
	if body["tokens_used"] != float64(7) {
		t.Errorf("tokens_used = %v", body["tokens_used"])
	}
}

func TestQueryEndpointValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	body := postJSON(t, ts.URL+"/query", map[string]interface{}{}, http.StatusBadRequest)
	if body["error"] == nil {
		t.Error("expected error field")
	}

	// Wrong method
	resp, err := http.Get(ts.URL + "/query")
	if err != nil {
		t.Fatalf("GET /query failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /query status = %d, want 405", resp.StatusCode)
	}
}

func TestToolCallEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	body := postJSON(t, ts.URL+"/tool-call", map[string]interface{}{
		"tool_name":  "calculator",
		"parameters": map[string]interface{}{"expression": "2+2"},
	}, http.StatusOK)

	if body["result"] != "4" {
		t.Errorf("result = %v", body["result"])
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}

	// The short alias routes to the same handler.
	body = postJSON(t, ts.URL+"/tool", map[string]interface{}{
		"tool_name":  "calculator",
		"parameters": map[string]interface{}{"expression": "10*5"},
	}, http.StatusOK)
	if body["result"] != "50" {
		t.Errorf("result = %v", body["result"])
	}
}

func TestToolCallUnknownTool(t *testing.T) {
	ts, _ := newTestServer(t)

	body := postJSON(t, ts.URL+"/tool-call", map[string]interface{}{
		"tool_name":  "missing",
		"parameters": map[string]interface{}{},
	}, http.StatusBadRequest)
	if body["error"] == nil {
		t.Error("expected error field")
	}
}

func TestToolsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	body := getJSON(t, ts.URL+"/tools", http.StatusOK)
	if body["count"] != float64(1) {
		t.Errorf("count = %v", body["count"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	body := getJSON(t, ts.URL+"/status", http.StatusOK)
	if body["name"] != "TestBot" {
		t.Errorf("name = %v", body["name"])
	}
	if body["model"] != "test-model" {
		t.Errorf("model = %v", body["model"])
	}
	if body["tools_registered"] != float64(1) {
		t.Errorf("tools_registered = %v", body["tools_registered"])
	}
}

func TestIngestEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("Go favors composition over inheritance."), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	body := postJSON(t, ts.URL+"/ingest", map[string]interface{}{"file_path": path}, http.StatusOK)
	if body["documents_added"] != float64(1) {
		t.Errorf("documents_added = %v", body["documents_added"])
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}

	stats := getJSON(t, ts.URL+"/ingest-stats", http.StatusOK)
	if stats["total_ingestions"] != float64(1) {
		t.Errorf("total_ingestions = %v", stats["total_ingestions"])
	}

	ragStats := getJSON(t, ts.URL+"/rag", http.StatusOK)
	if ragStats["total_documents"] != float64(1) {
		t.Errorf("total_documents = %v", ragStats["total_documents"])
	}
}

func TestIngestEndpointMissingFile(t *testing.T) {
	ts, _ := newTestServer(t)

	body := postJSON(t, ts.URL+"/ingest", map[string]interface{}{"file_path": "/does/not/exist.txt"}, http.StatusBadRequest)
	if body["error"] == nil {
		t.Error("expected error field")
	}
}

func TestMemoryEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	postJSON(t, ts.URL+"/query", map[string]interface{}{"query": "Remember this"}, http.StatusOK)

	body := getJSON(t, ts.URL+"/memory", http.StatusOK)
	history, ok := body["history"].([]interface{})
	if !ok || len(history) != 2 {
		t.Fatalf("unexpected history: %v", body["history"])
	}

	stats, ok := body["stats"].(map[string]interface{})
	if !ok || stats["total_turns"] != float64(1) {
		t.Errorf("unexpected stats: %v", body["stats"])
	}

	// Out of range last_n is rejected.
	getJSON(t, ts.URL+"/memory?last_n=0", http.StatusBadRequest)
	getJSON(t, ts.URL+"/memory?last_n=500", http.StatusBadRequest)

	cleared := postJSON(t, ts.URL+"/memory/clear", map[string]interface{}{}, http.StatusOK)
	if cleared["success"] != true {
		t.Errorf("success = %v", cleared["success"])
	}

	body = getJSON(t, ts.URL+"/memory", http.StatusOK)
	if history, _ := body["history"].([]interface{}); len(history) != 0 {
		t.Errorf("memory not cleared: %v", body["history"])
	}
}

func TestResetEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	postJSON(t, ts.URL+"/query", map[string]interface{}{"query": "Hi"}, http.StatusOK)

	body := postJSON(t, ts.URL+"/reset", map[string]interface{}{}, http.StatusOK)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}

	health := getJSON(t, ts.URL+"/health", http.StatusOK)
	if health["agent_state"] != "idle" {
		t.Errorf("agent_state = %v", health["agent_state"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
