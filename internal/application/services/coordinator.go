package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/shopspring/decimal"
)

// CoordinatorInput is everything the coordinator writes for one authorization.
type CoordinatorInput struct {
	Context    *domain.TransactionContext
	Claim      *domain.ClaimMaster
	Request    domain.PaymentRequest
	Conversion domain.ConversionResult
}

type CoordinatorResult struct {
	History        domain.HistoryRecord
	Occurrence     int
	TotalPaid      decimal.Decimal
	PendingBalance decimal.Decimal
	PhasesOpened   int
	PhasesClosed   int
}

// TransactionCoordinator persists an authorization as one unit:
// history, claim master, accompaniment, phases, then commit.
type TransactionCoordinator struct {
	uow    application.UnitOfWork
	logger *slog.Logger
}

func NewTransactionCoordinator(uow application.UnitOfWork, logger *slog.Logger) *TransactionCoordinator {
	return &TransactionCoordinator{
		uow:    uow,
		logger: logger,
	}
}

// Execute returns domain.ErrConcurrencyConflict when the claim moved since it
// was read, and *domain.AmbiguousCommitError when the commit outcome is unknown.
// Nothing is persisted on any other error.
func (c *TransactionCoordinator) Execute(ctx context.Context, in CoordinatorInput) (*CoordinatorResult, error) {
	txc := in.Context
	if err := txc.Validate(); err != nil {
		return nil, err
	}

	logger := c.logger.With(
		"authorization_id", txc.AuthorizationID.String(),
		"claim_key", txc.Key.String(),
	)

	var result CoordinatorResult
	err := c.uow.WithinTransaction(ctx, func(ctx context.Context, store application.AuthorizationStore) error {
		result = CoordinatorResult{}
		return c.run(ctx, store, in, &result)
	})

	if err != nil {
		if errors.Is(err, domain.ErrCommitOutcomeUnknown) {
			logger.Error("commit outcome unknown, authorization needs reconciliation",
				"occurrence", result.Occurrence,
				"error", err,
			)
			return nil, &domain.AmbiguousCommitError{
				AuthorizationID: txc.AuthorizationID,
				Key:             txc.Key,
				Occurrence:      result.History.Occurrence,
				Err:             err,
			}
		}

		if txc.RollbackReason == "" {
			txc.RollbackReason = err.Error()
		}
		logger.Warn("authorization rolled back",
			"step", txc.Step.String(),
			"error", err,
		)
		return nil, err
	}

	logger.Info("authorization committed",
		"occurrence", result.Occurrence,
		"total_btnf", in.Conversion.Total.String(),
		"phases_opened", result.PhasesOpened,
		"phases_closed", result.PhasesClosed,
	)

	return &result, nil
}

// run drives the step sequence. Each step runs once and the context only
// advances after it succeeds.
func (c *TransactionCoordinator) run(ctx context.Context, store application.AuthorizationStore, in CoordinatorInput, result *CoordinatorResult) error {
	txc := in.Context
	for {
		var err error
		switch txc.Step {
		case domain.StepHistory:
			err = c.writeHistory(ctx, store, in, result)
		case domain.StepClaimMaster:
			err = c.advanceClaim(ctx, store, in, result)
		case domain.StepAccompaniment:
			err = c.writeAccompaniment(ctx, store, in, result)
		case domain.StepPhases:
			err = c.transitionPhases(ctx, store, in, result)
		case domain.StepCommitted:
			// the unit of work commits once run returns
			return nil
		default:
			return domain.NewInvalidTransitionError(txc.Step, domain.StepCommitted)
		}

		if err != nil {
			txc.RollbackReason = fmt.Sprintf("%s: %v", txc.Step, err)
			return err
		}
		if err := txc.Advance(); err != nil {
			return err
		}
	}
}

func (c *TransactionCoordinator) writeHistory(ctx context.Context, store application.AuthorizationStore, in CoordinatorInput, result *CoordinatorResult) error {
	record := domain.NewHistoryRecord(in.Context, in.Claim, in.Request, in.Conversion)
	if err := store.InsertHistory(ctx, &record); err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	result.History = record
	return nil
}

func (c *TransactionCoordinator) advanceClaim(ctx context.Context, store application.AuthorizationStore, in CoordinatorInput, result *CoordinatorResult) error {
	update, err := store.AdvanceClaim(ctx, in.Claim.Key, in.Claim.HistoryOccurrenceCounter, in.Conversion.Total.Amount())
	if err != nil {
		return err
	}
	if update.PendingBalance.IsNegative() {
		return domain.NewInsufficientBalanceError(in.Conversion.Total, in.Claim.PendingBalance())
	}
	if update.Occurrence != result.History.Occurrence {
		return domain.NewConcurrencyConflictError(in.Claim.Key, in.Claim.HistoryOccurrenceCounter)
	}
	result.Occurrence = update.Occurrence
	result.TotalPaid = update.TotalPaid
	result.PendingBalance = update.PendingBalance
	return nil
}

func (c *TransactionCoordinator) writeAccompaniment(ctx context.Context, store application.AuthorizationStore, in CoordinatorInput, result *CoordinatorResult) error {
	event := domain.NewAccompanimentEvent(in.Context, in.Claim, result.Occurrence, in.Request.Notes)
	if err := store.InsertAccompaniment(ctx, &event); err != nil {
		return fmt.Errorf("failed to insert accompaniment event: %w", err)
	}
	return nil
}

// transitionPhases applies every relationship configured for the payment
// authorization event. Opening skips a phase that is already open and closing
// skips a phase that is not.
func (c *TransactionCoordinator) transitionPhases(ctx context.Context, store application.AuthorizationStore, in CoordinatorInput, result *CoordinatorResult) error {
	businessDate := in.Context.BusinessDate
	protocol := in.Claim.Protocol

	relationships, err := store.FindPhaseRelationships(ctx, domain.EventPaymentAuthorization, businessDate)
	if err != nil {
		return fmt.Errorf("failed to load phase relationships: %w", err)
	}

	for _, rel := range relationships {
		if !rel.IsValidForDate(businessDate) {
			continue
		}

		open, err := store.FindOpenPhase(ctx, protocol, rel.PhaseCode)
		if err != nil {
			return fmt.Errorf("failed to load open phase %d: %w", rel.PhaseCode, err)
		}

		switch {
		case rel.Opens():
			if open != nil {
				continue
			}
			phase := domain.NewOpenPhase(protocol, rel, businessDate)
			if err := store.InsertPhase(ctx, &phase); err != nil {
				return fmt.Errorf("failed to open phase %d: %w", rel.PhaseCode, err)
			}
			result.PhasesOpened++

		case rel.Closes():
			if open == nil {
				continue
			}
			if err := open.Close(businessDate); err != nil {
				return err
			}
			if err := store.ClosePhase(ctx, open); err != nil {
				return fmt.Errorf("failed to close phase %d: %w", rel.PhaseCode, err)
			}
			result.PhasesClosed++
		}
	}

	return nil
}
