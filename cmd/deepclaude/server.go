// Package main is the deepclaude gateway entrypoint: config loading, the
// HTTP middleware chain, and graceful shutdown, grounded on the teacher's
// cmd/agentflow main/server split.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/api"
	"github.com/xinyihrsinuo/DeepClaude/internal/config"
	"github.com/xinyihrsinuo/DeepClaude/internal/metrics"
	"github.com/xinyihrsinuo/DeepClaude/internal/orchestrator"
	"github.com/xinyihrsinuo/DeepClaude/internal/server"
	"github.com/xinyihrsinuo/DeepClaude/internal/upstream"
)

var skipAuthPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// Server wires the gateway's dependencies into one http.Handler and manages
// its lifecycle.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *server.Manager
}

// NewServer constructs the gateway's handler chain for addr, bound to cfg.
func NewServer(cfg *config.Config, addr, apiKey string, allowOrigins []string, logger *zap.Logger) *Server {
	registry := config.NewRegistry(cfg)
	collector := metrics.NewCollector("deepclaude", logger)
	client := upstream.New(logger, collector)
	orch := orchestrator.New(registry, client, collector, logger)

	mux := http.NewServeMux()
	mux.Handle("/v1/chat/completions", api.NewChatHandler(orch, logger))
	mux.Handle("/v1/models", api.NewModelsHandler(registry))
	mux.HandleFunc("/healthz", handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	handler := Chain(mux,
		Recovery(logger),
		RequestID(),
		RequestLogger(logger),
		MetricsMiddleware(collector),
		SecurityHeaders(),
		CORS(allowOrigins),
		BearerAuth(apiKey, skipAuthPaths),
	)

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = addr
	manager := server.NewManager(handler, srvCfg, logger)

	return &Server{cfg: cfg, logger: logger, manager: manager}
}

// Start begins listening; it returns once the listener is bound.
func (s *Server) Start() error {
	if err := s.manager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	s.logger.Info("deepclaude gateway started", zap.String("addr", s.manager.Addr()))
	return nil
}

// WaitForShutdown blocks until a shutdown signal arrives, then drains and
// stops the server.
func (s *Server) WaitForShutdown() {
	s.manager.WaitForShutdown()
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"healthy"}`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
