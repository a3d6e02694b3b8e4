// internal/handler/health_handler.go
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/unclebandit/outreach-backend/internal/logger"
)

const (
	defaultHealthTimeout = 5 * time.Second

	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// CheckFunc matches the Healthcheck closures of db, runguard and queue.
type CheckFunc func(ctx context.Context) error

type healthResponse struct {
	Checks map[string]healthCheck `json:"checks,omitempty"`
	Status string                 `json:"status"`
}

type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	Checks  map[string]CheckFunc
	Timeout time.Duration
	Log     *slog.Logger
}

func NewHealthHandler(log *slog.Logger) *HealthHandler {
	if log == nil {
		log = logger.NewNope()
	}
	return &HealthHandler{
		Checks:  map[string]CheckFunc{},
		Timeout: defaultHealthTimeout,
		Log:     log,
	}
}

// Add registers a named readiness check.
func (h *HealthHandler) Add(name string, check CheckFunc) {
	h.Checks[name] = check
}

// Live always answers OK.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeHealthJSON(w, http.StatusOK, &healthResponse{Status: statusHealthy})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready runs every check and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := h.runChecks(r.Context())

	status := http.StatusOK
	if resp.Status == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	if wantsJSON(r) {
		writeHealthJSON(w, status, resp)
		return
	}

	w.WriteHeader(status)
	if resp.Status == statusHealthy {
		_, _ = w.Write([]byte("OK"))
	} else {
		_, _ = w.Write([]byte("Service Unavailable"))
	}
}

func (h *HealthHandler) runChecks(ctx context.Context) *healthResponse {
	if len(h.Checks) == 0 {
		return &healthResponse{Status: statusHealthy}
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  = make(map[string]healthCheck, len(h.Checks))
		hasError bool
	)

	for name, check := range h.Checks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			result := healthCheck{Status: statusHealthy}
			if err := check(ctx); err != nil {
				result.Status = statusUnhealthy
				result.Error = err.Error()
				h.Log.WarnContext(ctx, "health check failed", "check", name, "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			results[name] = result
			if result.Status == statusUnhealthy {
				hasError = true
			}
		}()
	}

	wg.Wait()

	status := statusHealthy
	if hasError {
		status = statusUnhealthy
	}
	return &healthResponse{Status: status, Checks: results}
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeHealthJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
