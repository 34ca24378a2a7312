// Package domain holds the claim, money and authorization records of the
// payment authorization pipeline.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Violation codes raised by claim key and request validation.
const (
	ViolationClaimKey          = "VAL-001"
	ViolationPaymentType       = "BR-010"
	ViolationPrincipal         = "BR-011"
	ViolationPrincipalScale    = "BR-012"
	ViolationCurrency          = "BR-013"
	ViolationPolicyType        = "BR-015"
	ViolationCorrection        = "BR-017"
	ViolationBeneficiary       = "BR-019"
	ViolationBeneficiaryLength = "BR-020"
	ViolationOperator          = "BR-021"
	ViolationNotes             = "BR-022"
	ViolationPendingBalance    = "VAL-005"
	ViolationBeneficiaryNeeded = "VAL-007"
)

// ClaimKey identifies a claim. It is a comparable value and can key a map.
type ClaimKey struct {
	InsuranceType int
	Origin        int
	Branch        int
	Number        int
}

func NewClaimKey(insuranceType, origin, branch, number int) (ClaimKey, error) {
	key := ClaimKey{
		InsuranceType: insuranceType,
		Origin:        origin,
		Branch:        branch,
		Number:        number,
	}
	if err := key.Validate(); err != nil {
		return ClaimKey{}, err
	}
	return key, nil
}

// Validate returns a *ViolationError listing every out-of-range part.
func (k ClaimKey) Validate() error {
	var v Violations
	if k.InsuranceType < 0 {
		v.Add(ViolationClaimKey, "insurance_type", "must not be negative")
	}
	if k.Origin < 1 || k.Origin > 99 {
		v.Add(ViolationClaimKey, "origin", "must be between 1 and 99")
	}
	if k.Branch < 0 || k.Branch > 99 {
		v.Add(ViolationClaimKey, "branch", "must be between 0 and 99")
	}
	if k.Number < 1 || k.Number > 999999 {
		v.Add(ViolationClaimKey, "number", "must be between 1 and 999999")
	}
	return v.Err()
}

func (k ClaimKey) String() string {
	return fmt.Sprintf("%d/%02d/%02d/%06d", k.InsuranceType, k.Origin, k.Branch, k.Number)
}

// Protocol is the claim's protocol reference used by accompaniment and phase records.
type Protocol struct {
	Source     int
	Number     int
	CheckDigit int
}

func (p Protocol) String() string {
	return fmt.Sprintf("%03d/%08d-%d", p.Source, p.Number, p.CheckDigit)
}

// PolicyRef points at the insurance policy a claim was opened under.
type PolicyRef struct {
	Origin int
	Branch int
	Number int
}

func (p PolicyRef) IsZero() bool {
	return p.Number <= 0
}

type ClaimMaster struct {
	Key           ClaimKey
	Protocol      Protocol
	Policy        PolicyRef
	ProductCode   int
	InsuranceKind int

	ExpectedReserve decimal.Decimal
	TotalPaid       decimal.Decimal

	// HistoryOccurrenceCounter is both the optimistic-concurrency version and
	// the sequence number of the last history record.
	HistoryOccurrenceCounter int
}

func (c *ClaimMaster) PendingBalance() decimal.Decimal {
	return c.ExpectedReserve.Sub(c.TotalPaid)
}

// CanPay reports whether amount fits in the pending balance.
func (c *ClaimMaster) CanPay(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(c.PendingBalance())
}

func (c *ClaimMaster) NextOccurrence() int {
	return c.HistoryOccurrenceCounter + 1
}

// RequiresBeneficiary is driven by the claim's insurance kind flag.
func (c *ClaimMaster) RequiresBeneficiary() bool {
	return c.InsuranceKind != 0
}

func (c *ClaimMaster) IsConsortium() bool {
	return IsConsortiumProduct(c.ProductCode)
}

var consortiumProducts = map[int]struct{}{
	6814: {},
	7701: {},
	7709: {},
}

func IsConsortiumProduct(code int) bool {
	_, ok := consortiumProducts[code]
	return ok
}

// ContractRecord links a policy to a pension or housing contract.
type ContractRecord struct {
	Policy         PolicyRef
	ContractNumber int
	ProductCode    int
	Status         string
}

// IsClosedPensionEntity reports an EFP contract, which routes to SIPUA.
func (c ContractRecord) IsClosedPensionEntity() bool {
	return c.ContractNumber > 0
}
