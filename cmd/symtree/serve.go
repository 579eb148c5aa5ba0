package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lthms/symtree/internal/forest"
	"github.com/lthms/symtree/internal/render"
)

// ServeCmd runs the HTTP daemon: forest API plus MCP over SSE.
type ServeCmd struct {
	SourceFlags `embed:""`
	ForestFlags `embed:""`

	Addr      string        `help:"Listen address (default from serve.addr, else 127.0.0.1:2750)."`
	Keepalive time.Duration `default:"30s" help:"Interval between SSE keepalive comments."`
}

// Run serves until interrupted.
func (cmd *ServeCmd) Run(cfg *Config) error {
	src, closeSrc, err := cmd.SourceFlags.open(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	addr := cmd.Addr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	svc := &forestService{src: src, flags: cmd.ForestFlags, metrics: newMetrics(reg)}
	srv := &http.Server{
		Handler:           setupHTTPMux(svc, reg, cmd.Keepalive),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String(), "source", src)
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupHTTPMux creates an http.ServeMux with all routes registered.
// Metrics are served from reg.
func setupHTTPMux(svc *forestService, reg *prometheus.Registry, keepalive time.Duration) *http.ServeMux {
	// A fresh MCP server per SSE connection gives each session its own
	// initialization lifecycle.
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return newMCPServer(svc)
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseWithKeepalive(sseHandler, keepalive))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("GET /api/forest", svc.metrics.instrument("/api/forest", handleForest(svc)))
	mux.Handle("GET /api/chain", svc.metrics.instrument("/api/chain", handleChain(svc)))
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func handleForest(svc *forestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f, err := svc.forest(r.Context(), q.Get("type"), q.Get("root"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, render.Tree(f.Roots()))
	}
}

func handleChain(svc *forestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing name parameter"})
			return
		}
		nodes, err := svc.chain(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, render.List(nodes))
	}
}

// writeError maps forest errors to client errors; anything else is an
// upstream failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, forest.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, forest.ErrCycleDetected), errors.Is(err, forest.ErrDuplicateName):
		status = http.StatusConflict
	}
	if status == http.StatusBadGateway {
		slog.Warn("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
