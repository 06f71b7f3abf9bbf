package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the process readiness flag. The server clears it when draining.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the process readiness flag.
func IsReady() bool {
	return ready.Load()
}

// Checker is a named dependency probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function into a Checker.
type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name returns the probe label.
func (c CheckFunc) Name() string { return c.Label }

// Check runs the probe.
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checkers []Checker
	Timeout  time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	if !ready.Load() {
		status["server"] = "shutting down"
		healthy = false
	}
	for _, c := range h.Checkers {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		result := "ok"
		if err := c.Check(ctx); err != nil {
			result = err.Error()
			healthy = false
		}
		cancel()
		status[c.Name()] = result
	}
	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}
