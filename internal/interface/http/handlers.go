package http

import (
	"net/http"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/interface/http/handlers"
)

// handleRoot lists the endpoints.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	endpoints := map[string]string{
		"health": "/healthz",
		"live":   "/livez",
	}
	if s.config.EnableMetrics && s.deps.Metrics != nil {
		endpoints["metrics"] = "/metrics"
	}
	if s.deps.Webhook != nil {
		endpoints["webhook"] = WebhookPath
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":      "pepegotchi-bot",
		"endpoints": endpoints,
	})
}

// handleHealth runs the dependency checks and reports the bot state. A
// stopped bot is unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := handlers.HealthStatus{
		Healthy:   true,
		Message:   "OK",
		Uptime:    s.Uptime().Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
	if s.deps.Health != nil {
		status = s.deps.Health.Check(r.Context())
	}

	if s.deps.Bot != nil {
		status.Bot = s.deps.Bot.GetStats()
		if !s.deps.Bot.IsRunning() {
			status.Healthy = false
			status.Message = "bot is not running"
		}
	}

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleLive answers liveness probes without touching dependencies.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
