package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// violationCodes maps request fields to the business rule they enforce.
var violationCodes = map[string]string{
	"payment_type": domain.ViolationPaymentType,
	"currency":     domain.ViolationCurrency,
	"beneficiary":  domain.ViolationBeneficiaryLength,
	"policy_type":  domain.ViolationPolicyType,
	"notes":        domain.ViolationNotes,
	"operator_id":  domain.ViolationOperator,
}

// RequestValidator checks request shape and returns every violation at once.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate checks everything that does not depend on the claim.
func (rv *RequestValidator) Validate(req domain.PaymentRequest) error {
	var v domain.Violations

	if err := rv.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate request: %w", err)
		}
		for _, fe := range fieldErrs {
			v.Add(codeFor(fe.Field()), fe.Field(), describe(fe))
		}
	}

	checkAmount(&v, req.Principal, "principal", domain.ViolationPrincipal, true)
	checkAmount(&v, req.Correction, "correction", domain.ViolationCorrection, false)

	return v.Err()
}

// ValidateForClaim checks the rules that need the loaded claim.
func (rv *RequestValidator) ValidateForClaim(claim *domain.ClaimMaster, req domain.PaymentRequest) error {
	var v domain.Violations
	if claim.RequiresBeneficiary() && strings.TrimSpace(req.Beneficiary) == "" {
		v.Add(domain.ViolationBeneficiaryNeeded, "beneficiary",
			fmt.Sprintf("is required for insurance kind %d", claim.InsuranceKind))
	}
	return v.Err()
}

func checkAmount(v *domain.Violations, amount decimal.Decimal, field, code string, strictlyPositive bool) {
	switch {
	case strictlyPositive && !amount.IsPositive():
		v.Add(code, field, "must be greater than zero")
	case amount.IsNegative():
		v.Add(code, field, "must not be negative")
	}
	if !amount.Equal(amount.Truncate(domain.PrecisionMonetary)) {
		v.Add(domain.ViolationPrincipalScale, field, "must have at most 2 decimal places")
	}
}

func codeFor(field string) string {
	if code, ok := violationCodes[field]; ok {
		return code
	}
	return domain.ViolationClaimKey
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	case "alpha":
		return "must contain letters only"
	case "uppercase":
		return "must be uppercase"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
