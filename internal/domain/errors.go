package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so the sentinels below
// work with errors.Is regardless of the message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Retryable interface for errors that can be retried
type Retryable interface {
	IsRetryable() bool
}

// ProviderRejection is implemented by client errors that may carry a
// provider's refusal of the request itself, such as a SOAP Client fault or a
// 4xx error body.
type ProviderRejection interface {
	Retryable
	Rejected() bool
	ProviderCode() string
	ProviderMessage() string
}

const (
	ErrCodeBusinessRuleViolation       = "BUSINESS_RULE_VIOLATION"
	ErrCodeClaimNotFound               = "CLAIM_NOT_FOUND"
	ErrCodeInsufficientBalance         = "INSUFFICIENT_BALANCE"
	ErrCodeExternalValidationFailed    = "EXTERNAL_VALIDATION_FAILED"
	ErrCodeExternalServiceUnavailable  = "EXTERNAL_SERVICE_UNAVAILABLE"
	ErrCodeRateNotFound                = "RATE_NOT_FOUND"
	ErrCodeConcurrencyConflict         = "CONCURRENCY_CONFLICT"
	ErrCodeNeedsManualReconciliation   = "NEEDS_MANUAL_RECONCILIATION"
	ErrCodeInvalidProduct              = "INVALID_PRODUCT"
	ErrCodeRouteNotConfigured          = "ROUTE_NOT_CONFIGURED"
	ErrCodeInvalidTransition           = "INVALID_TRANSITION"
	ErrCodeCurrencyMismatch            = "CURRENCY_MISMATCH"
	ErrCodeInvalidAmount               = "INVALID_AMOUNT"
	ErrCodeInvalidTransactionContext   = "INVALID_TRANSACTION_CONTEXT"
	ErrCodeCommitOutcomeUnknown        = "COMMIT_OUTCOME_UNKNOWN"
	ErrCodeAuthorizationNotFound       = "AUTHORIZATION_NOT_FOUND"
	ErrCodeBusinessDateNotConfigured   = "BUSINESS_DATE_NOT_CONFIGURED"
	ErrCodePhaseAlreadyClosed          = "PHASE_ALREADY_CLOSED"
	ErrCodeExternalValidationTransport = "EXTERNAL_VALIDATION_TRANSPORT"
)

var (
	ErrClaimNotFound             = &DomainError{Code: ErrCodeClaimNotFound, Message: "claim not found"}
	ErrInsufficientBalance       = &DomainError{Code: ErrCodeInsufficientBalance, Message: "insufficient pending balance"}
	ErrConcurrencyConflict       = &DomainError{Code: ErrCodeConcurrencyConflict, Message: "claim was modified by another authorization"}
	ErrCurrencyMismatch          = &DomainError{Code: ErrCodeCurrencyMismatch, Message: "currency mismatch"}
	ErrInvalidAmount             = &DomainError{Code: ErrCodeInvalidAmount, Message: "invalid amount"}
	ErrInvalidTransition         = &DomainError{Code: ErrCodeInvalidTransition, Message: "invalid transaction step transition"}
	ErrRouteNotConfigured        = &DomainError{Code: ErrCodeRouteNotConfigured, Message: "validation route is not configured"}
	ErrCommitOutcomeUnknown      = &DomainError{Code: ErrCodeCommitOutcomeUnknown, Message: "commit acknowledgement lost"}
	ErrAuthorizationNotFound     = &DomainError{Code: ErrCodeAuthorizationNotFound, Message: "authorization not found"}
	ErrBusinessDateNotSet        = &DomainError{Code: ErrCodeBusinessDateNotConfigured, Message: "business date is not configured"}
	ErrPhaseAlreadyClosed        = &DomainError{Code: ErrCodePhaseAlreadyClosed, Message: "phase is already closed"}
	ErrInvalidTransactionContext = &DomainError{Code: ErrCodeInvalidTransactionContext, Message: "invalid transaction context"}
	ErrBusinessRuleViolation     = &DomainError{Code: ErrCodeBusinessRuleViolation, Message: "business rule violation"}
)

func NewClaimNotFoundError(key ClaimKey) *DomainError {
	return &DomainError{
		Code:    ErrCodeClaimNotFound,
		Message: fmt.Sprintf("claim %s not found", key),
	}
}

func NewInsufficientBalanceError(requested, pending fmt.Stringer) *DomainError {
	return &DomainError{
		Code:    ErrCodeInsufficientBalance,
		Message: fmt.Sprintf("requested amount %s exceeds pending balance %s", requested, pending),
	}
}

func NewConcurrencyConflictError(key ClaimKey, expectedOccurrence int) *DomainError {
	return &DomainError{
		Code:    ErrCodeConcurrencyConflict,
		Message: fmt.Sprintf("claim %s advanced past occurrence %d", key, expectedOccurrence),
	}
}

func NewCurrencyMismatchError(left, right string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCurrencyMismatch,
		Message: fmt.Sprintf("cannot combine %s with %s", left, right),
	}
}

func NewInvalidAmountError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount: %s", reason),
	}
}

func NewInvalidTransitionError(from, to TransactionStep) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewInvalidProductError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidProduct,
		Message: message,
	}
}

func NewInvalidTransactionContextError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransactionContext,
		Message: fmt.Sprintf("invalid transaction context: %s", reason),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Violation is a single failed business rule.
type Violation struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	if v.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", v.Code, v.Field, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Code, v.Message)
}

// ViolationError carries every violated rule of a request, never just the first.
type ViolationError struct {
	errs *multierror.Error
}

// Violations accumulates rule failures. The zero value is ready to use.
type Violations struct {
	errs *multierror.Error
}

func (v *Violations) Add(code, field, message string) {
	v.errs = multierror.Append(v.errs, Violation{Code: code, Field: field, Message: message})
}

// Merge appends the violations of err when it is a *ViolationError.
func (v *Violations) Merge(err error) {
	var verr *ViolationError
	if errors.As(err, &verr) {
		for _, item := range verr.Violations() {
			v.errs = multierror.Append(v.errs, item)
		}
	}
}

func (v *Violations) Len() int {
	if v.errs == nil {
		return 0
	}
	return v.errs.Len()
}

// Err returns nil when nothing was added.
func (v *Violations) Err() error {
	if v.Len() == 0 {
		return nil
	}
	v.errs.ErrorFormat = formatViolations
	return &ViolationError{errs: v.errs}
}

func (e *ViolationError) Error() string {
	return e.errs.Error()
}

func (e *ViolationError) Violations() []Violation {
	out := make([]Violation, 0, e.errs.Len())
	for _, err := range e.errs.WrappedErrors() {
		var v Violation
		if errors.As(err, &v) {
			out = append(out, v)
		}
	}
	return out
}

// HasCode reports whether any violation carries code.
func (e *ViolationError) HasCode(code string) bool {
	for _, v := range e.Violations() {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (e *ViolationError) Is(target error) bool {
	var t *DomainError
	return errors.As(target, &t) && t.Code == ErrCodeBusinessRuleViolation
}

func formatViolations(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d business rule violation(s): %s", len(errs), strings.Join(parts, "; "))
}

// ExternalValidationError is raised when a provider rejects the payment or
// cannot be reached after the client policy is exhausted.
type ExternalValidationError struct {
	Route        ValidationRoute
	ProviderCode string
	Message      string
	Unavailable  bool
	Err          error
}

func (e *ExternalValidationError) Error() string {
	if e.Unavailable {
		return fmt.Sprintf("%s validation unavailable: %s", e.Route, e.Message)
	}
	return fmt.Sprintf("%s validation failed [%s]: %s", e.Route, e.ProviderCode, e.Message)
}

func (e *ExternalValidationError) Unwrap() error {
	return e.Err
}

func (e *ExternalValidationError) Code() string {
	if e.Unavailable {
		return ErrCodeExternalServiceUnavailable
	}
	return ErrCodeExternalValidationFailed
}

// RateNotFoundError means no currency-unit row covers the business date.
type RateNotFoundError struct {
	Currency string
	AsOf     string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no conversion rate for %s covering %s", e.Currency, e.AsOf)
}

// AmbiguousCommitError is raised when a commit was sent but its outcome is unknown.
// The authorization must not be resubmitted until it is reconciled.
type AmbiguousCommitError struct {
	AuthorizationID uuid.UUID
	Key             ClaimKey
	Occurrence      int
	Err             error
}

func (e *AmbiguousCommitError) Error() string {
	return fmt.Sprintf("authorization %s for claim %s (occurrence %d) needs manual reconciliation: %v",
		e.AuthorizationID, e.Key, e.Occurrence, e.Err)
}

func (e *AmbiguousCommitError) Unwrap() error {
	return e.Err
}
