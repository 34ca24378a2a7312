package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/claimpay/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
	CategoryReconciliation ErrorCategory = "RECONCILIATION"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	// Checked first: an ambiguous commit may wrap a context or network error.
	var ambiguous *domain.AmbiguousCommitError
	if errors.As(err, &ambiguous) || errors.Is(err, domain.ErrCommitOutcomeUnknown) {
		return CategoryReconciliation
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return CategoryTransient
	}

	var violations *domain.ViolationError
	if errors.As(err, &violations) {
		return CategoryClientError
	}

	if errors.Is(err, domain.ErrInsufficientBalance) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrCurrencyMismatch) ||
		domain.IsErrorCode(err, domain.ErrCodeInvalidProduct) {
		return CategoryBusinessRule
	}

	var external *domain.ExternalValidationError
	if errors.As(err, &external) {
		if external.Unavailable {
			return CategoryInfrastructure
		}
		return CategoryPermanent
	}

	var rateErr *domain.RateNotFoundError
	if errors.As(err, &rateErr) {
		return CategoryInfrastructure
	}

	if errors.Is(err, domain.ErrClaimNotFound) || errors.Is(err, domain.ErrAuthorizationNotFound) {
		return CategoryClientError
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidInput, ErrCodeNotFound:
			return CategoryClientError
		case ErrCodeInternal, ErrCodeRouteNotConfigured:
			return CategoryInfrastructure
		case ErrCodeTimeout:
			return CategoryTransient
		}
	}

	var retryable domain.Retryable
	if errors.As(err, &retryable) {
		if retryable.IsRetryable() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	return CategoryInfrastructure
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	return CategorizeError(err) == CategoryTransient
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var ambiguous *domain.AmbiguousCommitError
	if errors.As(err, &ambiguous) {
		return http.StatusInternalServerError
	}

	var violations *domain.ViolationError
	if errors.As(err, &violations) {
		return http.StatusUnprocessableEntity
	}

	var external *domain.ExternalValidationError
	if errors.As(err, &external) {
		if external.Unavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusUnprocessableEntity
	}

	var rateErr *domain.RateNotFoundError
	if errors.As(err, &rateErr) {
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, domain.ErrClaimNotFound),
		errors.Is(err, domain.ErrAuthorizationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInvalidAmount),
		domain.IsErrorCode(err, domain.ErrCodeInvalidProduct):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var ambiguous *domain.AmbiguousCommitError
	if errors.As(err, &ambiguous) {
		return domain.ErrCodeNeedsManualReconciliation
	}

	var violations *domain.ViolationError
	if errors.As(err, &violations) {
		return domain.ErrCodeBusinessRuleViolation
	}

	var external *domain.ExternalValidationError
	if errors.As(err, &external) {
		return external.Code()
	}

	var rateErr *domain.RateNotFoundError
	if errors.As(err, &rateErr) {
		return domain.ErrCodeRateNotFound
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}
