package domain

import (
	"github.com/shopspring/decimal"
)

const (
	PrecisionMonetary int32 = 2
	PrecisionRate     int32 = 8

	CurrencyBTNF = "BTNF"
)

// CurrencyAmount is an immutable non-negative amount rounded to its precision.
// Rounding is banker's rounding everywhere.
type CurrencyAmount struct {
	amount    decimal.Decimal
	currency  string
	precision int32
}

func NewCurrencyAmount(amount decimal.Decimal, currency string, precision int32) (CurrencyAmount, error) {
	if currency == "" {
		return CurrencyAmount{}, NewInvalidAmountError("currency is required")
	}
	if precision != PrecisionMonetary && precision != PrecisionRate {
		return CurrencyAmount{}, NewInvalidAmountError("precision must be 2 or 8")
	}
	if amount.IsNegative() {
		return CurrencyAmount{}, NewInvalidAmountError("amount cannot be negative")
	}
	return CurrencyAmount{
		amount:    amount.RoundBank(precision),
		currency:  currency,
		precision: precision,
	}, nil
}

// NewMoney builds a 2-decimal monetary amount.
func NewMoney(amount decimal.Decimal, currency string) (CurrencyAmount, error) {
	return NewCurrencyAmount(amount, currency, PrecisionMonetary)
}

// NewRate builds an 8-decimal conversion rate expressed in BTNF.
func NewRate(rate decimal.Decimal) (CurrencyAmount, error) {
	return NewCurrencyAmount(rate, CurrencyBTNF, PrecisionRate)
}

func (a CurrencyAmount) Amount() decimal.Decimal { return a.amount }
func (a CurrencyAmount) Currency() string        { return a.currency }
func (a CurrencyAmount) Precision() int32        { return a.precision }

// Add fails on a currency mismatch. The result keeps the wider precision.
func (a CurrencyAmount) Add(b CurrencyAmount) (CurrencyAmount, error) {
	if a.currency != b.currency {
		return CurrencyAmount{}, NewCurrencyMismatchError(a.currency, b.currency)
	}
	precision := max(a.precision, b.precision)
	return CurrencyAmount{
		amount:    a.amount.Add(b.amount).RoundBank(precision),
		currency:  a.currency,
		precision: precision,
	}, nil
}

// Multiply scales the amount by factor, keeping currency and precision.
func (a CurrencyAmount) Multiply(factor decimal.Decimal) (CurrencyAmount, error) {
	if factor.IsNegative() {
		return CurrencyAmount{}, NewInvalidAmountError("factor cannot be negative")
	}
	return CurrencyAmount{
		amount:    a.amount.Mul(factor).RoundBank(a.precision),
		currency:  a.currency,
		precision: a.precision,
	}, nil
}

func (a CurrencyAmount) WithCurrency(currency string) CurrencyAmount {
	a.currency = currency
	return a
}

func (a CurrencyAmount) WithPrecision(precision int32) CurrencyAmount {
	a.amount = a.amount.RoundBank(precision)
	a.precision = precision
	return a
}

func (a CurrencyAmount) IsZero() bool {
	return a.amount.IsZero()
}

func (a CurrencyAmount) Equal(b CurrencyAmount) bool {
	return a.currency == b.currency && a.precision == b.precision && a.amount.Equal(b.amount)
}

func (a CurrencyAmount) String() string {
	return a.amount.StringFixed(a.precision) + " " + a.currency
}
