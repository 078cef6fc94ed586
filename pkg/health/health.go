package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentra-safety/sentra-platform/pkg/mqtt"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

const readyCheckTimeout = 2 * time.Second

// Checker serves the per-agent liveness and readiness endpoints
type Checker struct {
	mqtt   mqtt.Client
	redis  redis.Client
	logger *slog.Logger
}

// NewChecker creates a checker over the agent's broker and Redis connections
func NewChecker(mqttClient mqtt.Client, redisClient redis.Client, logger *slog.Logger) *Checker {
	return &Checker{
		mqtt:   mqttClient,
		redis:  redisClient,
		logger: logger,
	}
}

type statusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Broker    string `json:"broker,omitempty"`
	Redis     string `json:"redis,omitempty"`
}

// HandlerFunc answers liveness probes. It always returns 200 while the
// process is up; the orchestrator must not restart an agent just because
// the broker is mid-reconnect.
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, http.StatusOK, statusResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadyFunc answers readiness probes: 200 only when the broker connection
// is live and Redis answers a ping
func (h *Checker) ReadyFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Status:    "ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Broker:    "connected",
			Redis:     "connected",
		}
		code := http.StatusOK

		if h.mqtt == nil || !h.mqtt.IsConnected() {
			resp.Broker = "disconnected"
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()
		if h.redis == nil {
			resp.Redis = "disconnected"
		} else if err := h.redis.Ping(ctx); err != nil {
			resp.Redis = "disconnected"
		}

		if resp.Broker != "connected" || resp.Redis != "connected" {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		h.respond(w, code, resp)
	}
}

func (h *Checker) respond(w http.ResponseWriter, code int, resp statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode health response", "error", err)
	}
}
