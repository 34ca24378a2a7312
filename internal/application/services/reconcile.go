package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type ReconciliationStatus string

const (
	ReconciliationCommitted    ReconciliationStatus = "COMMITTED"
	ReconciliationNotCommitted ReconciliationStatus = "NOT_COMMITTED"
	ReconciliationPending      ReconciliationStatus = "PENDING"
)

// PendingReconciliation is an authorization whose commit outcome is unknown.
type PendingReconciliation struct {
	AuthorizationID uuid.UUID
	Key             domain.ClaimKey
	Occurrence      int
	OperatorID      string
	DetectedAt      time.Time
}

// ReconciliationRegistry tracks ambiguous commits until they are resolved or expire.
// It lives in process memory only. After a restart an uncommitted ambiguous
// authorization is reported as not found rather than NOT_COMMITTED.
type ReconciliationRegistry struct {
	items *cache.Cache
}

func NewReconciliationRegistry(ttl time.Duration) *ReconciliationRegistry {
	return &ReconciliationRegistry{
		items: cache.New(ttl, ttl/2),
	}
}

func (r *ReconciliationRegistry) Track(p PendingReconciliation) {
	r.items.Set(p.AuthorizationID.String(), p, cache.DefaultExpiration)
}

func (r *ReconciliationRegistry) Get(id uuid.UUID) (PendingReconciliation, bool) {
	v, ok := r.items.Get(id.String())
	if !ok {
		return PendingReconciliation{}, false
	}
	return v.(PendingReconciliation), true
}

func (r *ReconciliationRegistry) Resolve(id uuid.UUID) {
	r.items.Delete(id.String())
}

// Pending lists tracked authorizations, oldest first.
func (r *ReconciliationRegistry) Pending(limit int) []PendingReconciliation {
	items := r.items.Items()
	out := make([]PendingReconciliation, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(PendingReconciliation))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *ReconciliationRegistry) Len() int {
	return r.items.ItemCount()
}

type ReconciliationOutcome struct {
	AuthorizationID uuid.UUID            `json:"authorization_id"`
	Status          ReconciliationStatus `json:"status"`
	Occurrence      int                  `json:"occurrence,omitempty"`
	ClaimKey        string               `json:"claim_key,omitempty"`
}

// ReconciliationService decides whether an ambiguous commit reached the database
// by looking for its history record. It never resubmits a payment.
type ReconciliationService struct {
	history  application.HistoryRepository
	registry *ReconciliationRegistry
	settle   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconciliationService waits settle after detection before reporting a
// missing history record as not committed.
func NewReconciliationService(history application.HistoryRepository, registry *ReconciliationRegistry, settle time.Duration, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{
		history:  history,
		registry: registry,
		settle:   settle,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ReconciliationService) Reconcile(ctx context.Context, id uuid.UUID) (ReconciliationOutcome, error) {
	outcome := ReconciliationOutcome{AuthorizationID: id}

	record, err := s.history.FindByAuthorizationID(ctx, id)
	if err == nil {
		s.registry.Resolve(id)
		outcome.Status = ReconciliationCommitted
		outcome.Occurrence = record.Occurrence
		outcome.ClaimKey = record.Key.String()
		s.logger.Info("ambiguous authorization was committed",
			"authorization_id", id.String(),
			"claim_key", outcome.ClaimKey,
			"occurrence", record.Occurrence,
		)
		return outcome, nil
	}

	if !errors.Is(err, domain.ErrAuthorizationNotFound) {
		return outcome, fmt.Errorf("failed to look up authorization %s: %w", id, err)
	}

	pending, tracked := s.registry.Get(id)
	if !tracked {
		return outcome, domain.ErrAuthorizationNotFound
	}

	outcome.ClaimKey = pending.Key.String()
	if s.now().Sub(pending.DetectedAt) < s.settle {
		outcome.Status = ReconciliationPending
		return outcome, nil
	}

	s.registry.Resolve(id)
	outcome.Status = ReconciliationNotCommitted
	s.logger.Warn("ambiguous authorization was not committed, safe to resubmit",
		"authorization_id", id.String(),
		"claim_key", outcome.ClaimKey,
	)
	return outcome, nil
}

// ReconcilePending resolves up to limit tracked authorizations.
func (s *ReconciliationService) ReconcilePending(ctx context.Context, limit int) []ReconciliationOutcome {
	pending := s.registry.Pending(limit)
	outcomes := make([]ReconciliationOutcome, 0, len(pending))

	for _, p := range pending {
		outcome, err := s.Reconcile(ctx, p.AuthorizationID)
		if err != nil {
			s.logger.Error("failed to reconcile authorization",
				"authorization_id", p.AuthorizationID.String(),
				"error", err,
			)
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
