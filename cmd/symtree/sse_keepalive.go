package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var keepaliveComment = []byte(": keepalive\n\n")

// lockedWriter serializes writes to an SSE stream so that heartbeat
// comments never land inside an event written by the MCP handler.
type lockedWriter struct {
	http.ResponseWriter
	mu sync.Mutex
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseWriter.Write(p)
}

func (w *lockedWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *lockedWriter) flushLocked() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// heartbeat writes a comment line every interval until ctx is done or a
// write fails.
func (w *lockedWriter) heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		w.mu.Lock()
		_, err := w.ResponseWriter.Write(keepaliveComment)
		if err == nil {
			w.flushLocked()
		}
		w.mu.Unlock()
		if err != nil {
			slog.Debug("sse keepalive write failed", "error", err)
			return
		}
	}
}

// sseWithKeepalive keeps idle SSE streams (GET) alive with periodic
// comments. Message posts go straight to handler. A non-positive interval
// disables the heartbeat.
func sseWithKeepalive(handler http.Handler, interval time.Duration) http.Handler {
	if interval <= 0 {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			handler.ServeHTTP(w, r)
			return
		}

		lw := &lockedWriter{ResponseWriter: w}
		ctx, cancel := context.WithCancel(r.Context())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			lw.heartbeat(ctx, interval)
		}()
		// the heartbeat must stop before w goes back to the server
		defer wg.Wait()
		defer cancel()

		handler.ServeHTTP(lw, r)
	})
}
