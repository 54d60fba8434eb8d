// Package health serves the readiness probe.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/users-api/internal/utils/response"
)

// Pinger is anything that can tell whether its backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Check handles GET /healthz: 200 when the store answers a ping, 503 when
// it does not.
func Check(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "health check failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, status{Status: "unavailable", Error: err.Error()})
			return
		}
		response.WriteJSON(w, http.StatusOK, status{Status: "ok"})
	}
}
