package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimRepository is the claim lookup port.
type ClaimRepository interface {
	// FindClaim returns domain.ErrClaimNotFound when no claim matches key.
	FindClaim(ctx context.Context, key domain.ClaimKey) (*domain.ClaimMaster, error)
	// FindContractsByPolicy returns contracts of policy whose number is at least
	// filter.MinContractNumber. An empty result is not an error.
	FindContractsByPolicy(ctx context.Context, policy domain.PolicyRef, filter ContractFilter) ([]domain.ContractRecord, error)
}

type ContractFilter struct {
	MinContractNumber int
}

// RateRepository returns the currency-unit rows of currency whose validity covers asOf.
type RateRepository interface {
	FindRates(ctx context.Context, currency string, asOf time.Time) ([]domain.RateRecord, error)
}

// SystemControlRepository exposes the business date of a system.
type SystemControlRepository interface {
	BusinessDate(ctx context.Context, systemID string) (time.Time, error)
}

// HistoryRepository reads committed history outside any transaction.
type HistoryRepository interface {
	FindByAuthorizationID(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error)
}

// ClaimUpdate is the claim state after the conditional update.
type ClaimUpdate struct {
	TotalPaid      decimal.Decimal
	PendingBalance decimal.Decimal
	Occurrence     int
}

// AuthorizationStore is scoped to one database transaction.
type AuthorizationStore interface {
	InsertHistory(ctx context.Context, record *domain.HistoryRecord) error
	// AdvanceClaim adds total to the claim's paid amount and increments its
	// occurrence counter only if the counter still equals expectedOccurrence.
	// It returns domain.ErrConcurrencyConflict otherwise.
	AdvanceClaim(ctx context.Context, key domain.ClaimKey, expectedOccurrence int, total decimal.Decimal) (ClaimUpdate, error)
	InsertAccompaniment(ctx context.Context, event *domain.AccompanimentEvent) error
	FindPhaseRelationships(ctx context.Context, eventCode int, on time.Time) ([]domain.PhaseEventRelationship, error)
	// FindOpenPhase returns nil, nil when the protocol has no open phase with phaseCode.
	FindOpenPhase(ctx context.Context, protocol domain.Protocol, phaseCode int) (*domain.PhaseRecord, error)
	InsertPhase(ctx context.Context, phase *domain.PhaseRecord) error
	ClosePhase(ctx context.Context, phase *domain.PhaseRecord) error
}

// UnitOfWork runs fn inside one transaction. Any error from fn rolls back.
// When the commit outcome cannot be known the error wraps domain.ErrCommitOutcomeUnknown.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, store AuthorizationStore) error) error
}

// ValidationClient is one external validation system.
type ValidationClient interface {
	Route() domain.ValidationRoute
	Validate(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error)
	CheckHealth(ctx context.Context) HealthStatus
}

type HealthState string

const (
	HealthHealthy   HealthState = "HEALTHY"
	HealthDegraded  HealthState = "DEGRADED"
	HealthUnhealthy HealthState = "UNHEALTHY"
)

type HealthStatus struct {
	System         string         `json:"system"`
	Status         HealthState    `json:"status"`
	ResponseTimeMs int64          `json:"response_time_ms"`
	Metrics        map[string]any `json:"metrics,omitempty"`
	CheckedAt      time.Time      `json:"checked_at"`
	Error          string         `json:"error,omitempty"`
}
