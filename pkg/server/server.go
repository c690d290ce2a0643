// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janobot/janobot/pkg/agent"
	"github.com/janobot/janobot/pkg/config"
	"github.com/janobot/janobot/pkg/ingest"
)

// Server serves the agent API.
type Server struct {
	cfg      *config.ServerConfig
	agent    *agent.Agent
	ingester *ingest.Ingester
	server   *http.Server
}

// New creates a server around an agent. The ingester may be nil when
// ingestion endpoints should report unavailable.
func New(cfg *config.ServerConfig, ag *agent.Agent, ingester *ingest.Ingester) *Server {
	if cfg.Host == "" || cfg.Port == 0 {
		cfg.SetDefaults()
	}

	return &Server{
		cfg:      cfg,
		agent:    ag,
		ingester: ingester,
	}
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.cfg.Address()
}

// Start runs the server until ctx is cancelled or ListenAndServe fails.
func (s *Server) Start(ctx context.Context) error {
	var handler http.Handler = s.routes()

	if config.BoolValue(s.cfg.CORS, true) {
		handler = corsMiddleware(handler)
	}
	handler = loggingMiddleware(handler)

	s.server = &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      handler,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeout) * time.Second,
	}

	slog.Info("HTTP server starting", "address", s.cfg.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/tools", s.handleTools)
	mux.HandleFunc("/tool", s.handleToolCall)
	mux.HandleFunc("/tool-call", s.handleToolCall)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/ingest-stats", s.handleIngestStats)
	mux.HandleFunc("/rag", s.handleRAG)
	mux.HandleFunc("/memory", s.handleMemory)
	mux.HandleFunc("/memory/clear", s.handleMemoryClear)
	mux.HandleFunc("/reset", s.handleReset)

	if config.BoolValue(s.cfg.Metrics, true) {
		mux.Handle("/metrics", promhttp.Handler())
	}

	return mux
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
