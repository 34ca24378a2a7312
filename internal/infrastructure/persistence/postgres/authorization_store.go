package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AuthorizationStore writes one authorization. It is only built by the
// transaction coordinator, bound to an open pgx.Tx.
type AuthorizationStore struct {
	q Executor
}

func (s *AuthorizationStore) InsertHistory(ctx context.Context, record *domain.HistoryRecord) error {
	query := `
		INSERT INTO claim_history (` + historyColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	m := toHistoryModel(record)
	_, err := s.q.Exec(ctx, query,
		m.InsuranceType,
		m.Origin,
		m.Branch,
		m.ClaimNumber,
		m.Occurrence,
		m.AuthorizationID,
		m.Operation,
		m.BusinessDate,
		m.OperationTime,
		m.PaymentType,
		m.PolicyType,
		m.Principal,
		m.Correction,
		m.Beneficiary,
		m.CorrectionType,
		m.PrincipalBTNF,
		m.CorrectionBTNF,
		m.TotalBTNF,
		m.AccountingStatus,
		m.Status,
		m.OperatorID,
	)
	if err != nil {
		// another authorization already took this occurrence
		if IsUniqueViolation(err) {
			return domain.NewConcurrencyConflictError(record.Key, record.Occurrence-1)
		}
		return err
	}
	return nil
}

// AdvanceClaim is the compare-and-set on the occurrence counter. No row
// updated means the claim moved since it was read.
func (s *AuthorizationStore) AdvanceClaim(ctx context.Context, key domain.ClaimKey, expectedOccurrence int, total decimal.Decimal) (application.ClaimUpdate, error) {
	query := `
		UPDATE claim_master
		SET total_paid = total_paid + $5,
		    occurrence = occurrence + 1,
		    updated_at = NOW()
		WHERE insurance_type = $1 AND origin = $2 AND branch = $3 AND claim_number = $4
		  AND occurrence = $6
		RETURNING total_paid, expected_reserve - total_paid, occurrence
	`

	var update application.ClaimUpdate
	err := s.q.QueryRow(ctx, query,
		key.InsuranceType,
		key.Origin,
		key.Branch,
		key.Number,
		total,
		expectedOccurrence,
	).Scan(&update.TotalPaid, &update.PendingBalance, &update.Occurrence)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return application.ClaimUpdate{}, domain.NewConcurrencyConflictError(key, expectedOccurrence)
		}
		if IsCheckViolation(err) {
			return application.ClaimUpdate{}, &domain.DomainError{
				Code:    domain.ErrCodeInsufficientBalance,
				Message: fmt.Sprintf("payment of %s exceeds the pending balance of claim %s", total.StringFixed(2), key),
				Err:     err,
			}
		}
		return application.ClaimUpdate{}, fmt.Errorf("failed to update claim %s: %w", key, err)
	}

	return update, nil
}

func (s *AuthorizationStore) InsertAccompaniment(ctx context.Context, event *domain.AccompanimentEvent) error {
	query := `
		INSERT INTO claim_accompaniment (
			protocol_source, protocol_number, protocol_dac, event_code, business_date, occurrence,
			insurance_type, origin, branch, claim_number, notes, operator_id, event_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.q.Exec(ctx, query,
		event.Protocol.Source,
		event.Protocol.Number,
		event.Protocol.CheckDigit,
		event.EventCode,
		event.BusinessDate,
		event.Occurrence,
		event.Key.InsuranceType,
		event.Key.Origin,
		event.Key.Branch,
		event.Key.Number,
		event.Notes,
		event.OperatorID,
		event.EventTime,
	)
	return err
}

func (s *AuthorizationStore) FindPhaseRelationships(ctx context.Context, eventCode int, on time.Time) ([]domain.PhaseEventRelationship, error) {
	query := `
		SELECT phase_code, event_code, valid_from, valid_to, indicator, active
		FROM phase_event_relationships
		WHERE event_code = $1 AND active
		  AND valid_from <= $2 AND (valid_to IS NULL OR valid_to >= $2)
		ORDER BY indicator DESC, phase_code
	`

	rows, err := s.q.Query(ctx, query, eventCode, on)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relationships []domain.PhaseEventRelationship
	for rows.Next() {
		var m RelationshipModel
		if err := rows.Scan(&m.PhaseCode, &m.EventCode, &m.ValidFrom, &m.ValidTo, &m.Indicator, &m.Active); err != nil {
			return nil, fmt.Errorf("failed to scan phase relationship: %w", err)
		}
		relationships = append(relationships, toDomainRelationship(m))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phase relationships: %w", err)
	}

	return relationships, nil
}

// FindOpenPhase locks the open phase row so that a concurrent close waits.
func (s *AuthorizationStore) FindOpenPhase(ctx context.Context, protocol domain.Protocol, phaseCode int) (*domain.PhaseRecord, error) {
	query := `
		SELECT protocol_source, protocol_number, protocol_dac, phase_code, event_code,
		       relationship_start, opened_on, closed_on
		FROM claim_phases
		WHERE protocol_source = $1 AND protocol_number = $2 AND protocol_dac = $3
		  AND phase_code = $4 AND closed_on = $5
		FOR UPDATE
	`

	var m PhaseModel
	err := s.q.QueryRow(ctx, query,
		protocol.Source,
		protocol.Number,
		protocol.CheckDigit,
		phaseCode,
		domain.OpenPhaseEnd,
	).Scan(
		&m.ProtocolSource,
		&m.ProtocolNumber,
		&m.ProtocolDac,
		&m.PhaseCode,
		&m.EventCode,
		&m.RelationshipStart,
		&m.OpenedOn,
		&m.ClosedOn,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return toDomainPhase(m), nil
}

func (s *AuthorizationStore) InsertPhase(ctx context.Context, phase *domain.PhaseRecord) error {
	query := `
		INSERT INTO claim_phases (
			protocol_source, protocol_number, protocol_dac, phase_code, event_code,
			relationship_start, opened_on, closed_on
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.q.Exec(ctx, query,
		phase.Protocol.Source,
		phase.Protocol.Number,
		phase.Protocol.CheckDigit,
		phase.PhaseCode,
		phase.EventCode,
		phase.RelationshipStart,
		phase.OpenedOn,
		phase.ClosedOn,
	)
	return err
}

func (s *AuthorizationStore) ClosePhase(ctx context.Context, phase *domain.PhaseRecord) error {
	query := `
		UPDATE claim_phases
		SET closed_on = $6
		WHERE protocol_source = $1 AND protocol_number = $2 AND protocol_dac = $3
		  AND phase_code = $4 AND opened_on = $5
	`

	tag, err := s.q.Exec(ctx, query,
		phase.Protocol.Source,
		phase.Protocol.Number,
		phase.Protocol.CheckDigit,
		phase.PhaseCode,
		phase.OpenedOn,
		phase.ClosedOn,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("phase %d of protocol %s not found", phase.PhaseCode, phase.Protocol)
	}
	return nil
}
