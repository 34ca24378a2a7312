package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/patrickmn/go-cache"
)

const dateLayout = "2006-01-02"

// CurrencyConverter turns request amounts into BTNF. It does no I/O.
type CurrencyConverter struct{}

func NewCurrencyConverter() *CurrencyConverter {
	return &CurrencyConverter{}
}

// Convert rounds each converted part to 2 decimals with banker's rounding and
// sums the rounded parts, so Total always equals the sum of the parts.
func (c *CurrencyConverter) Convert(principal, correction, rate domain.CurrencyAmount, asOf time.Time) (domain.ConversionResult, error) {
	if rate.Precision() != domain.PrecisionRate {
		return domain.ConversionResult{}, domain.NewInvalidAmountError("conversion rate must have precision 8")
	}
	if rate.IsZero() {
		return domain.ConversionResult{}, domain.NewInvalidAmountError("conversion rate must be positive")
	}
	if principal.Currency() != correction.Currency() {
		return domain.ConversionResult{}, domain.NewCurrencyMismatchError(principal.Currency(), correction.Currency())
	}

	principalConverted, err := domain.NewMoney(principal.Amount().Mul(rate.Amount()), domain.CurrencyBTNF)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	correctionConverted, err := domain.NewMoney(correction.Amount().Mul(rate.Amount()), domain.CurrencyBTNF)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	total, err := principalConverted.Add(correctionConverted)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	return domain.ConversionResult{
		PrincipalConverted:  principalConverted,
		CorrectionConverted: correctionConverted,
		Total:               total,
		Rate:                rate,
		AsOf:                asOf,
	}, nil
}

// RateResolver finds the rate in force on a date. Found rows are cached per day.
type RateResolver struct {
	repo     application.RateRepository
	currency string
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewRateResolver disables caching when ttl is not positive.
func NewRateResolver(repo application.RateRepository, currency string, ttl time.Duration, logger *slog.Logger) *RateResolver {
	r := &RateResolver{
		repo:     repo,
		currency: currency,
		logger:   logger,
	}
	if ttl > 0 {
		r.cache = cache.New(ttl, 2*ttl)
	}
	return r
}

// RateFor returns a *domain.RateNotFoundError when no row covers asOf.
func (r *RateResolver) RateFor(ctx context.Context, asOf time.Time) (domain.CurrencyAmount, error) {
	key := r.currency + ":" + asOf.Format(dateLayout)

	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return domain.NewRate(cached.(domain.RateRecord).Rate)
		}
	}

	records, err := r.repo.FindRates(ctx, r.currency, asOf)
	if err != nil {
		return domain.CurrencyAmount{}, fmt.Errorf("failed to load rates for %s: %w", asOf.Format(dateLayout), err)
	}

	record, ok := selectRate(records, asOf)
	if !ok {
		r.logger.Error("no conversion rate covers business date",
			"currency", r.currency,
			"as_of", asOf.Format(dateLayout),
		)
		return domain.CurrencyAmount{}, &domain.RateNotFoundError{
			Currency: r.currency,
			AsOf:     asOf.Format(dateLayout),
		}
	}

	if r.cache != nil {
		r.cache.Set(key, record, cache.DefaultExpiration)
	}

	return domain.NewRate(record.Rate)
}

// Invalidate drops every cached rate.
func (r *RateResolver) Invalidate() {
	if r.cache != nil {
		r.cache.Flush()
	}
}

// selectRate picks the covering row with the latest start.
func selectRate(records []domain.RateRecord, asOf time.Time) (domain.RateRecord, bool) {
	var (
		best  domain.RateRecord
		found bool
	)
	for _, rec := range records {
		if !rec.Covers(asOf) {
			continue
		}
		if !found || rec.ValidFrom.After(best.ValidFrom) {
			best = rec
			found = true
		}
	}
	return best, found
}
