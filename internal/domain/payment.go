package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest is what an operator submits for a claim.
type PaymentRequest struct {
	PaymentType int             `json:"payment_type" validate:"min=1,max=5"`
	Principal   decimal.Decimal `json:"principal"`
	Correction  decimal.Decimal `json:"correction"`
	Currency    string          `json:"currency" validate:"required,len=3,alpha,uppercase"`
	Beneficiary string          `json:"beneficiary" validate:"max=255"`
	PolicyType  string          `json:"policy_type" validate:"omitempty,oneof=1 2"`
	Notes       string          `json:"notes" validate:"max=500"`
	OperatorID  string          `json:"operator_id" validate:"required,max=20"`
}

// RequestedAmount is principal plus correction in the request currency.
func (r PaymentRequest) RequestedAmount() decimal.Decimal {
	return r.Principal.Add(r.Correction)
}

// RateRecord is one currency-unit row, valid on [ValidFrom, ValidTo).
type RateRecord struct {
	Currency  string
	ValidFrom time.Time
	ValidTo   time.Time
	Rate      decimal.Decimal
}

func (r RateRecord) Covers(d time.Time) bool {
	return !d.Before(r.ValidFrom) && d.Before(r.ValidTo)
}

// ConversionResult holds BTNF amounts at precision 2.
type ConversionResult struct {
	PrincipalConverted  CurrencyAmount
	CorrectionConverted CurrencyAmount
	Total               CurrencyAmount
	Rate                CurrencyAmount
	AsOf                time.Time
}

// ValidationOutcome is the normalized answer of an external validation system.
type ValidationOutcome struct {
	Route        ValidationRoute
	Approved     bool
	ProviderCode string
	Message      string
	ResponseTime time.Duration
}

type ProductValidation struct {
	Valid   bool
	Route   ValidationRoute
	Message string
}

// TransactionContext follows one authorization through the coordinator.
type TransactionContext struct {
	AuthorizationID uuid.UUID
	Key             ClaimKey
	OperatorID      string
	BusinessDate    time.Time
	StartedAt       time.Time
	Step            TransactionStep
	RollbackReason  string
}

func NewTransactionContext(key ClaimKey, operatorID string, businessDate, now time.Time) *TransactionContext {
	return &TransactionContext{
		AuthorizationID: uuid.New(),
		Key:             key,
		OperatorID:      operatorID,
		BusinessDate:    businessDate,
		StartedAt:       now,
		Step:            StepHistory,
	}
}

// Validate checks the context before any write happens.
func (t *TransactionContext) Validate() error {
	switch {
	case t.AuthorizationID == uuid.Nil:
		return NewInvalidTransactionContextError("authorization id is required")
	case t.OperatorID == "":
		return NewInvalidTransactionContextError("operator id is required")
	case t.BusinessDate.IsZero():
		return NewInvalidTransactionContextError("business date is required")
	case t.Step != StepHistory:
		return NewInvalidTransactionContextError("transaction already started at " + t.Step.String())
	}
	return nil
}

// Advance moves to the next step.
func (t *TransactionContext) Advance() error {
	next, err := t.Step.Next()
	if err != nil {
		return err
	}
	t.Step = next
	return nil
}

// AuthorizationResult is returned for a committed authorization.
type AuthorizationResult struct {
	AuthorizationID     uuid.UUID
	Key                 ClaimKey
	Occurrence          int
	Route               ValidationRoute
	ProviderCode        string
	PrincipalConverted  CurrencyAmount
	CorrectionConverted CurrencyAmount
	Total               CurrencyAmount
	PendingBalance      decimal.Decimal
	BusinessDate        time.Time
	AuthorizedAt        time.Time
	Attempts            int
}
