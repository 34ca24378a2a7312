package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
)

// HealthMonitor checks every validation system on an interval and logs
// state changes.
type HealthMonitor struct {
	clients  []application.ValidationClient
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	last map[string]application.HealthState
}

func NewHealthMonitor(clients []application.ValidationClient, interval time.Duration, logger *slog.Logger) *HealthMonitor {
	return &HealthMonitor{
		clients:  clients,
		interval: interval,
		logger:   logger,
		last:     make(map[string]application.HealthState),
	}
}

func (m *HealthMonitor) Start(ctx context.Context) {
	m.logger.Info("health monitor started", "interval", m.interval, "systems", len(m.clients))
	runEvery(ctx, m.interval, func(ctx context.Context) {
		m.RunOnce(ctx)
	})
	m.logger.Info("health monitor stopping")
}

func (m *HealthMonitor) RunOnce(ctx context.Context) []application.HealthStatus {
	statuses := make([]application.HealthStatus, 0, len(m.clients))
	for _, c := range m.clients {
		status := c.CheckHealth(ctx)
		statuses = append(statuses, status)
		m.record(status)
	}
	return statuses
}

// State returns the last observed state of system.
func (m *HealthMonitor) State(system string) (application.HealthState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.last[system]
	return s, ok
}

func (m *HealthMonitor) record(status application.HealthStatus) {
	m.mu.Lock()
	previous, seen := m.last[status.System]
	m.last[status.System] = status.Status
	m.mu.Unlock()

	if seen && previous == status.Status {
		return
	}

	attrs := []any{
		"system", status.System,
		"status", status.Status,
		"previous", previous,
		"response_time_ms", status.ResponseTimeMs,
	}
	if status.Error != "" {
		attrs = append(attrs, "error", status.Error)
	}

	switch status.Status {
	case application.HealthUnhealthy:
		m.logger.Error("validation system unhealthy", attrs...)
	case application.HealthDegraded:
		m.logger.Warn("validation system degraded", attrs...)
	default:
		m.logger.Info("validation system healthy", attrs...)
	}
}
