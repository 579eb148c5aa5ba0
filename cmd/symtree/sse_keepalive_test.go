package main

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// idleSSE blocks until the client goes away, like an SSE session with no
// traffic.
var idleSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestKeepaliveCommentsAreSent(t *testing.T) {
	srv := httptest.NewServer(sseWithKeepalive(idleSSE, 20*time.Millisecond))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	seen := 0
	deadline := time.After(5 * time.Second)
	for seen < 2 {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before two keepalives")
			}
			if strings.TrimSpace(line) == ": keepalive" {
				seen++
			}
		case <-deadline:
			t.Fatalf("timed out waiting for keepalives (saw %d)", seen)
		}
	}
}

// wrapProbe reports whether each request reached it through the keepalive
// writer.
func wrapProbe(wrapped chan<- bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(*lockedWriter)
		wrapped <- ok
		w.WriteHeader(http.StatusAccepted)
	})
}

func TestKeepalivePassesPOSTThrough(t *testing.T) {
	wrapped := make(chan bool, 1)
	srv := httptest.NewServer(sseWithKeepalive(wrapProbe(wrapped), 20*time.Millisecond))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if <-wrapped {
		t.Error("POST should reach the handler unwrapped")
	}
}

func TestKeepaliveDisabled(t *testing.T) {
	wrapped := make(chan bool, 1)
	h := sseWithKeepalive(wrapProbe(wrapped), 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if <-wrapped {
		t.Error("GET should not be wrapped when keepalives are disabled")
	}
}
