package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/orientamada/orientamada/internal/app"
)

// HealthResponse is the body of /health and /readiness / Corps de /health et /readiness
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
}

var startTime = time.Now()

// HealthCheck answers 200 while the process runs; dependencies are not checked.
// Vivacité du processus, sans vérifier les dépendances.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   app.Version,
		Uptime:    formatUptime(time.Since(startTime)),
	})
}

// ReadinessCheck answers 503 when the database is unreachable / 503 si la base est injoignable
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": h.checkDatabase(r.Context())}

	status, code := "ok", http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status, code = "error", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
		Version:   app.Version,
	})
}

func (h *Handler) checkDatabase(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	if err := h.container.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		requestLoggerFromContext(ctx).Warn("readiness: database check failed", "error", err)
		return "error"
	}
	return "ok"
}

// formatUptime renders e.g. "1d 5h 23m", "2h 15m 30s" or "45s"
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
