package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/jackc/pgx/v5"
)

type ClaimRepository struct {
	q Executor
}

func NewClaimRepository(db *DB) *ClaimRepository {
	return &ClaimRepository{q: db.Pool}
}

// FindClaim reads the claim master without locking it. Concurrent
// authorizations are detected later by the conditional update.
func (r *ClaimRepository) FindClaim(ctx context.Context, key domain.ClaimKey) (*domain.ClaimMaster, error) {
	query := `
		SELECT insurance_type, origin, branch, claim_number,
		       protocol_source, protocol_number, protocol_dac,
		       policy_origin, policy_branch, policy_number,
		       product_code, insurance_kind, expected_reserve, total_paid, occurrence
		FROM claim_master
		WHERE insurance_type = $1 AND origin = $2 AND branch = $3 AND claim_number = $4
	`

	var m ClaimModel
	err := r.q.QueryRow(ctx, query, key.InsuranceType, key.Origin, key.Branch, key.Number).Scan(
		&m.InsuranceType,
		&m.Origin,
		&m.Branch,
		&m.ClaimNumber,
		&m.ProtocolSource,
		&m.ProtocolNumber,
		&m.ProtocolDac,
		&m.PolicyOrigin,
		&m.PolicyBranch,
		&m.PolicyNumber,
		&m.ProductCode,
		&m.InsuranceKind,
		&m.ExpectedReserve,
		&m.TotalPaid,
		&m.Occurrence,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewClaimNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to find claim %s: %w", key, err)
	}

	return toDomainClaim(m), nil
}

func (r *ClaimRepository) FindContractsByPolicy(ctx context.Context, policy domain.PolicyRef, filter application.ContractFilter) ([]domain.ContractRecord, error) {
	query := `
		SELECT policy_origin, policy_branch, policy_number, contract_number, product_code, status
		FROM claim_contracts
		WHERE policy_origin = $1 AND policy_branch = $2 AND policy_number = $3
		  AND contract_number >= $4
		ORDER BY contract_number
	`

	rows, err := r.q.Query(ctx, query, policy.Origin, policy.Branch, policy.Number, filter.MinContractNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []domain.ContractRecord
	for rows.Next() {
		var m ContractModel
		if err := rows.Scan(
			&m.PolicyOrigin,
			&m.PolicyBranch,
			&m.PolicyNumber,
			&m.ContractNumber,
			&m.ProductCode,
			&m.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, toDomainContract(m))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contracts: %w", err)
	}

	return contracts, nil
}
