package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application/services"
)

type PendingReconciler interface {
	ReconcilePending(ctx context.Context, limit int) []services.ReconciliationOutcome
}

type Pending interface {
	Len() int
}

// Reconciler periodically resolves authorizations whose commit outcome was
// lost. It reads history only and never resubmits a payment.
type Reconciler struct {
	service   PendingReconciler
	pending   Pending
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconciler(
	service PendingReconciler,
	pending Pending,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		service:   service,
		pending:   pending,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("starting background reconciler", "interval", r.interval, "batch_size", r.batchSize)
	runEvery(ctx, r.interval, func(ctx context.Context) {
		r.RunOnce(ctx)
	})
	r.logger.Info("stopping background reconciler")
}

// RunOnce executes a single reconciliation cycle and returns what it resolved.
func (r *Reconciler) RunOnce(ctx context.Context) []services.ReconciliationOutcome {
	if r.pending.Len() == 0 {
		return nil
	}

	outcomes := r.service.ReconcilePending(ctx, r.batchSize)

	counts := make(map[services.ReconciliationStatus]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}

	r.logger.Info("reconciliation cycle finished",
		"checked", len(outcomes),
		"committed", counts[services.ReconciliationCommitted],
		"not_committed", counts[services.ReconciliationNotCommitted],
		"still_pending", counts[services.ReconciliationPending],
		"remaining", r.pending.Len(),
	)

	return outcomes
}
