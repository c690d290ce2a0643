package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/janobot/janobot/pkg/httpclient"
)

const mcpProtocolVersion = "2024-11-05"

// MCPSource discovers tools from an MCP (Model Context Protocol) server.
// Stdio transport uses the mcp-go client for subprocess communication;
// HTTP transports speak JSON-RPC through the retrying HTTP client.
type MCPSource struct {
	name    string
	url     string
	command string
	args    []string
	env     map[string]string

	mu         sync.Mutex
	client     *client.Client
	httpClient *httpclient.Client
	sessionID  string
}

// MCPOptions configures an MCP source.
type MCPOptions struct {
	Name    string
	URL     string
	Command string
	Args    []string
	Env     map[string]string
}

func NewMCPSource(opts MCPOptions) (*MCPSource, error) {
	if opts.URL == "" && opts.Command == "" {
		return nil, fmt.Errorf("either url or command is required")
	}
	if opts.Name == "" {
		opts.Name = "mcp"
	}

	return &MCPSource{
		name:    opts.Name,
		url:     opts.URL,
		command: opts.Command,
		args:    opts.Args,
		env:     opts.Env,
	}, nil
}

func (s *MCPSource) Name() string {
	return s.name
}

// DiscoverTools connects to the server and lists its tools.
func (s *MCPSource) DiscoverTools(ctx context.Context) ([]Tool, error) {
	if s.command != "" {
		return s.discoverStdio(ctx)
	}
	return s.discoverHTTP(ctx)
}

func (s *MCPSource) discoverStdio(ctx context.Context) ([]Tool, error) {
	mcpClient, err := client.NewStdioMCPClient(s.command, s.convertEnv(), s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "janobot", Version: "1.0.0"}
	initReq.Params.ProtocolVersion = mcpProtocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	s.mu.Lock()
	s.client = mcpClient
	s.mu.Unlock()

	tools := make([]Tool, 0, len(listResp.Tools))
	for _, remote := range listResp.Tools {
		tools = append(tools, &mcpTool{
			source:      s,
			name:        remote.Name,
			description: remote.Description,
			params:      parametersFromSchema(schemaToMap(remote.InputSchema)),
			stdio:       true,
		})
	}
	return tools, nil
}

func (s *MCPSource) discoverHTTP(ctx context.Context) ([]Tool, error) {
	s.mu.Lock()
	s.httpClient = httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		httpclient.WithMaxRetries(3),
	)
	s.mu.Unlock()

	initResp, err := s.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": mcpProtocolVersion,
		"clientInfo":      map[string]any{"name": "janobot", "version": "1.0.0"},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MCP: %w", err)
	}
	if initResp.Error != nil {
		return nil, fmt.Errorf("MCP init error: %s", initResp.Error.Message)
	}

	listResp, err := s.rpc(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	if listResp.Error != nil {
		return nil, fmt.Errorf("MCP list error: %s", listResp.Error.Message)
	}

	resultMap, ok := listResp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from tools/list")
	}
	toolsList, ok := resultMap["tools"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing tools in tools/list response")
	}

	var tools []Tool
	for _, raw := range toolsList {
		toolMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		name, _ := toolMap["name"].(string)
		description, _ := toolMap["description"].(string)
		schema, _ := toolMap["inputSchema"].(map[string]any)

		tools = append(tools, &mcpTool{
			source:      s,
			name:        name,
			description: description,
			params:      parametersFromSchema(schema),
		})
	}
	return tools, nil
}

// Close shuts down the connection to the MCP server.
func (s *MCPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	s.httpClient = nil
	return nil
}

func (s *MCPSource) convertEnv() []string {
	if s.env == nil {
		return nil
	}
	out := make([]string, 0, len(s.env))
	for k, v := range s.env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpc sends a JSON-RPC request over HTTP. Responses may arrive as plain
// JSON or as an SSE event stream.
func (s *MCPSource) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	s.mu.Lock()
	hc := s.httpClient
	if s.sessionID != "" {
		httpReq.Header.Set("mcp-session-id", s.sessionID)
	}
	s.mu.Unlock()
	if hc == nil {
		return nil, fmt.Errorf("MCP source not connected")
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if sessionID := httpResp.Header.Get("mcp-session-id"); sessionID != "" {
		s.mu.Lock()
		s.sessionID = sessionID
		s.mu.Unlock()
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, httpResp.Status)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(respBody, &resp); err == nil {
		return &resp, nil
	}

	// SSE framing: find the first data: line holding a JSON-RPC message.
	for _, line := range strings.Split(string(respBody), "\n") {
		line = strings.TrimSpace(line)
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	return nil, fmt.Errorf("failed to parse response as JSON or SSE")
}

// mcpTool proxies execution of one remote tool.
type mcpTool struct {
	source      *MCPSource
	name        string
	description string
	params      []Parameter
	stdio       bool
}

func (t *mcpTool) Info() Info {
	return Info{
		Name:        t.name,
		Description: t.description,
		Type:        TypeMCP,
		Parameters:  t.params,
		Source:      t.source.name,
	}
}

func (t *mcpTool) Execute(ctx context.Context, params map[string]string) (string, error) {
	args := make(map[string]any, len(params))
	for k, v := range params {
		args[k] = v
	}

	if t.stdio {
		return t.executeStdio(ctx, args)
	}
	return t.executeHTTP(ctx, args)
}

func (t *mcpTool) executeStdio(ctx context.Context, args map[string]any) (string, error) {
	t.source.mu.Lock()
	mcpClient := t.source.client
	t.source.mu.Unlock()
	if mcpClient == nil {
		return "", fmt.Errorf("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("MCP call failed: %w", err)
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	joined := strings.Join(texts, "\n")

	if resp.IsError {
		if joined == "" {
			joined = "unknown error"
		}
		return "", fmt.Errorf("MCP tool error: %s", joined)
	}
	return joined, nil
}

func (t *mcpTool) executeHTTP(ctx context.Context, args map[string]any) (string, error) {
	resp, err := t.source.rpc(ctx, "tools/call", map[string]any{
		"name":      t.name,
		"arguments": args,
	})
	if err != nil {
		return "", fmt.Errorf("MCP call failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("MCP tool error: %s", resp.Error.Message)
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		return fmt.Sprint(resp.Result), nil
	}

	var texts []string
	if content, ok := resultMap["content"].([]any); ok {
		for _, c := range content {
			if cm, ok := c.(map[string]any); ok {
				if cm["type"] == "text" {
					if text, ok := cm["text"].(string); ok {
						texts = append(texts, text)
					}
				}
			}
		}
	}
	joined := strings.Join(texts, "\n")

	if isError, _ := resultMap["isError"].(bool); isError {
		if joined == "" {
			joined = "unknown error"
		}
		return "", fmt.Errorf("MCP tool error: %s", joined)
	}
	return joined, nil
}

func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// parametersFromSchema flattens a JSON Schema's properties into parameter
// descriptions.
func parametersFromSchema(schema map[string]any) []Parameter {
	if schema == nil {
		return nil
	}

	required := make(map[string]bool)
	if reqList, ok := schema["required"].([]any); ok {
		for _, name := range reqList {
			if str, ok := name.(string); ok {
				required[str] = true
			}
		}
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	var params []Parameter
	for name, raw := range properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		paramType, _ := prop["type"].(string)
		description, _ := prop["description"].(string)
		params = append(params, Parameter{
			Name:        name,
			Type:        paramType,
			Description: description,
			Required:    required[name],
		})
	}
	return params
}

var (
	_ Source = (*MCPSource)(nil)
	_ Tool   = (*mcpTool)(nil)
)
