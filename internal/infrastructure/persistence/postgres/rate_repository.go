package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/jackc/pgx/v5"
)

type RateRepository struct {
	q Executor
}

func NewRateRepository(db *DB) *RateRepository {
	return &RateRepository{q: db.Pool}
}

// FindRates returns the rows covering asOf, most recent first.
func (r *RateRepository) FindRates(ctx context.Context, currency string, asOf time.Time) ([]domain.RateRecord, error) {
	query := `
		SELECT currency, valid_from, valid_to, rate
		FROM currency_rates
		WHERE currency = $1 AND valid_from <= $2 AND valid_to > $2
		ORDER BY valid_from DESC
	`

	rows, err := r.q.Query(ctx, query, currency, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	var rates []domain.RateRecord
	for rows.Next() {
		var m RateModel
		if err := rows.Scan(&m.Currency, &m.ValidFrom, &m.ValidTo, &m.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rates = append(rates, toDomainRate(m))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rates: %w", err)
	}

	return rates, nil
}

type SystemControlRepository struct {
	q Executor
}

func NewSystemControlRepository(db *DB) *SystemControlRepository {
	return &SystemControlRepository{q: db.Pool}
}

func (r *SystemControlRepository) BusinessDate(ctx context.Context, systemID string) (time.Time, error) {
	var date time.Time
	err := r.q.QueryRow(ctx, `SELECT business_date FROM system_control WHERE system_id = $1`, systemID).Scan(&date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrBusinessDateNotSet
		}
		return time.Time{}, fmt.Errorf("failed to read business date: %w", err)
	}
	return date, nil
}
