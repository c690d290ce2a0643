package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/janobot/janobot/pkg/observability"
)

// QueryRequest asks the agent to answer a query.
type QueryRequest struct {
	Query string `json:"query"`

	// UseRAG defaults to true when omitted.
	UseRAG *bool `json:"use_rag,omitempty"`

	// MaxIterations caps the reasoning loop. Zero uses the agent default.
	MaxIterations int `json:"max_iterations,omitempty"`
}

// QueryResponse is the agent's answer.
type QueryResponse struct {
	Response   string `json:"response"`
	State      string `json:"state"`
	TokensUsed int    `json:"tokens_used"`
}

// IngestRequest adds a file to the knowledge base.
type IngestRequest struct {
	FilePath string `json:"file_path"`

	// Chunk defaults to true when omitted.
	Chunk *bool `json:"chunk,omitempty"`
}

// ToolCallRequest executes a tool directly.
type ToolCallRequest struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

func boolOrDefault(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("%s API is running", s.agent.Name()),
		"endpoints": map[string]string{
			"query":  "/query",
			"status": "/status",
			"tools":  "/tools",
			"ingest": "/ingest",
			"memory": "/memory",
			"rag":    "/rag",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "healthy",
		"agent_initialized": s.agent != nil,
		"agent_state":       s.agent.State(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req QueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := s.agent.Think(r.Context(), req.Query, boolOrDefault(req.UseRAG, true), req.MaxIterations)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Response:   result.Response,
		State:      string(result.State),
		TokensUsed: result.TokensUsed,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Status())
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	infos := s.agent.Tools().Infos()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": infos,
		"count": len(infos),
	})
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ToolCallRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ToolName == "" {
		writeError(w, http.StatusBadRequest, "tool_name is required")
		return
	}

	params := make(map[string]string, len(req.Parameters))
	for key, value := range req.Parameters {
		if str, ok := value.(string); ok {
			params[key] = str
		} else {
			params[key] = fmt.Sprint(value)
		}
	}

	result, err := s.agent.ExecuteTool(r.Context(), req.ToolName, params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tool":    req.ToolName,
		"result":  result,
		"success": true,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.ingester == nil {
		writeError(w, http.StatusInternalServerError, "ingester not initialized")
		return
	}

	var req IngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	count, err := s.ingester.IngestFile(r.Context(), req.FilePath, boolOrDefault(req.Chunk, true))
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	observability.RecordIngestion(count)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file":            req.FilePath,
		"documents_added": count,
		"success":         true,
	})
}

func (s *Server) handleIngestStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.ingester == nil {
		writeError(w, http.StatusInternalServerError, "ingester not initialized")
		return
	}
	writeJSON(w, http.StatusOK, s.ingester.Stats())
}

func (s *Server) handleRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pipeline := s.agent.RAG()
	if pipeline == nil {
		writeError(w, http.StatusInternalServerError, "RAG pipeline not initialized")
		return
	}
	writeJSON(w, http.StatusOK, pipeline.Stats())
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	lastN := 10
	if raw := r.URL.Query().Get("last_n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "last_n must be between 1 and 100")
			return
		}
		lastN = parsed
	}

	mem := s.agent.Memory()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": mem.GetHistory(lastN),
		"stats":   mem.Stats(),
	})
}

func (s *Server) handleMemoryClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.agent.Memory().Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Memory cleared",
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.agent.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Agent reset",
	})
}
