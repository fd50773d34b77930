package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	httputil "campuspark/pkg/http"
	kafka_middleware "campuspark/pkg/kafka/middleware"
	"campuspark/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const readyTimeout = 2 * time.Second

type HealthCheck func(ctx context.Context) error

type dependency struct {
	name     string
	check    HealthCheck
	critical bool
}

type HealthResponse struct {
	Status       string                     `json:"status"`
	Dependencies map[string]string          `json:"dependencies,omitempty"`
	Events       *kafka_middleware.Snapshot `json:"events,omitempty"`
}

// HealthHandler serves liveness on /health and dependency readiness on
// /ready. A failing critical dependency makes /ready return 503; a failing
// optional one only reports "degraded".
type HealthHandler struct {
	deps    []dependency
	metrics *kafka_middleware.Metrics
	log     *logger.Logger
}

func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{log: log}
}

func (h *HealthHandler) AddCheck(name string, check HealthCheck, critical bool) {
	h.deps = append(h.deps, dependency{name: name, check: check, critical: critical})
}

func (h *HealthHandler) WithEventMetrics(metrics *kafka_middleware.Metrics) {
	h.metrics = metrics
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := HealthResponse{Status: "ok"}
	if h.metrics != nil {
		snapshot := h.metrics.Snapshot()
		resp.Events = &snapshot
	}
	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := make([]error, len(h.deps))
	var wg sync.WaitGroup
	for i, dep := range h.deps {
		i, dep := i, dep
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = dep.check(ctx)
		}()
	}
	wg.Wait()

	resp := HealthResponse{Status: "ready", Dependencies: make(map[string]string, len(h.deps))}
	status := http.StatusOK
	for i, dep := range h.deps {
		if results[i] == nil {
			resp.Dependencies[dep.name] = "ok"
			continue
		}

		resp.Dependencies[dep.name] = "error"
		h.log.Error("dependency health check failed", "dependency", dep.name, "error", results[i])
		if dep.critical {
			status = http.StatusServiceUnavailable
			resp.Status = "unavailable"
		} else if resp.Status == "ready" {
			resp.Status = "degraded"
		}
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
