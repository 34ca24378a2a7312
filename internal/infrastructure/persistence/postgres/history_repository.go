package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const historyColumns = `
	insurance_type, origin, branch, claim_number, occurrence, authorization_id,
	operation, business_date, operation_time, payment_type, policy_type,
	principal, correction, beneficiary, correction_type,
	principal_btnf, correction_btnf, total_btnf,
	accounting_status, status, operator_id`

type HistoryRepository struct {
	q Executor
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{q: db.Pool}
}

// FindByAuthorizationID is used by reconciliation to tell whether an
// ambiguous commit reached the database.
func (r *HistoryRepository) FindByAuthorizationID(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM claim_history WHERE authorization_id = $1`

	m, err := scanHistory(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuthorizationNotFound
		}
		return nil, fmt.Errorf("failed to find authorization %s: %w", id, err)
	}
	return toDomainHistory(m), nil
}

func scanHistory(row pgx.Row) (HistoryModel, error) {
	var m HistoryModel
	err := row.Scan(
		&m.InsuranceType,
		&m.Origin,
		&m.Branch,
		&m.ClaimNumber,
		&m.Occurrence,
		&m.AuthorizationID,
		&m.Operation,
		&m.BusinessDate,
		&m.OperationTime,
		&m.PaymentType,
		&m.PolicyType,
		&m.Principal,
		&m.Correction,
		&m.Beneficiary,
		&m.CorrectionType,
		&m.PrincipalBTNF,
		&m.CorrectionBTNF,
		&m.TotalBTNF,
		&m.AccountingStatus,
		&m.Status,
		&m.OperatorID,
	)
	return m, err
}
