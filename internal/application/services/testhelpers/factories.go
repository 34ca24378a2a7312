package testhelpers

import (
	"io"
	"log/slog"
	"time"

	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/shopspring/decimal"
)

// BusinessDate is the business date used across the fixtures.
var BusinessDate = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

// DefaultClaimKey returns the key of DefaultClaim.
func DefaultClaimKey() domain.ClaimKey {
	return domain.ClaimKey{InsuranceType: 1, Origin: 10, Branch: 5, Number: 123456}
}

// DefaultClaim returns a claim with a 50000.00 pending balance on a regular
// product, which routes to SIMDA when its policy has no EFP contract.
func DefaultClaim() *domain.ClaimMaster {
	return &domain.ClaimMaster{
		Key:                      DefaultClaimKey(),
		Protocol:                 domain.Protocol{Source: 1, Number: 4567, CheckDigit: 8},
		Policy:                   domain.PolicyRef{Origin: 10, Branch: 5, Number: 998877},
		ProductCode:              1001,
		InsuranceKind:            0,
		ExpectedReserve:          decimal.RequireFromString("50000.00"),
		TotalPaid:                decimal.Zero,
		HistoryOccurrenceCounter: 0,
	}
}

// ConsortiumClaim returns a claim on consortium product 6814.
func ConsortiumClaim() *domain.ClaimMaster {
	c := DefaultClaim()
	c.Key.Number = 654321
	c.ProductCode = 6814
	return c
}

// DefaultPaymentRequest asks for 10000.00 plus 500.00 correction in BRL.
func DefaultPaymentRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		PaymentType: 1,
		Principal:   decimal.RequireFromString("10000.00"),
		Correction:  decimal.RequireFromString("500.00"),
		Currency:    "BRL",
		Beneficiary: "Maria Souza",
		PolicyType:  "1",
		Notes:       "first installment",
		OperatorID:  "OP001",
	}
}

// DefaultRate is 1.05 BTNF per BRL, valid for the whole of 2024.
func DefaultRate() domain.RateRecord {
	return domain.RateRecord{
		Currency:  "BRL",
		ValidFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Rate:      decimal.RequireFromString("1.05000000"),
	}
}

// OpeningRelationship opens phase 10 on payment authorization.
func OpeningRelationship() domain.PhaseEventRelationship {
	return domain.PhaseEventRelationship{
		PhaseCode: 10,
		EventCode: domain.EventPaymentAuthorization,
		ValidFrom: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		Indicator: domain.PhaseIndicatorOpen,
		Active:    true,
	}
}

// ClosingRelationship closes phase 20 on payment authorization.
func ClosingRelationship() domain.PhaseEventRelationship {
	return domain.PhaseEventRelationship{
		PhaseCode: 20,
		EventCode: domain.EventPaymentAuthorization,
		ValidFrom: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		Indicator: domain.PhaseIndicatorClose,
		Active:    true,
	}
}

// SeededStore returns a store holding DefaultClaim, DefaultRate and the
// business date.
func SeededStore() *MemoryStore {
	store := NewMemoryStore()
	store.AddClaim(DefaultClaim())
	store.AddRate(DefaultRate())
	store.SetBusinessDate(BusinessDate)
	return store
}

// DiscardLogger drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
