package handlers

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/interfaces/rest"
)

type HealthResponse struct {
	Status    application.HealthState    `json:"status"`
	Systems   []application.HealthStatus `json:"systems"`
	CheckedAt time.Time                  `json:"checked_at"`
}

// ValidationHealth reports every validation system. The response is 503 when
// any of them is unhealthy.
func (h *Handlers) ValidationHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    application.HealthHealthy,
		Systems:   make([]application.HealthStatus, 0, len(h.clients)),
		CheckedAt: time.Now().UTC(),
	}

	for _, c := range h.clients {
		status := c.CheckHealth(r.Context())
		response.Systems = append(response.Systems, status)
		response.Status = worse(response.Status, status.Status)
	}

	code := http.StatusOK
	if response.Status == application.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	rest.WriteJSON(w, code, response)
}

func worse(a, b application.HealthState) application.HealthState {
	rank := map[application.HealthState]int{
		application.HealthHealthy:   0,
		application.HealthDegraded:  1,
		application.HealthUnhealthy: 2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
