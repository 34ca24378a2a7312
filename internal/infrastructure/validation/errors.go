package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/sony/gobreaker/v2"
)

// ErrServiceUnavailable is returned without a network call while a route's
// circuit is open.
var ErrServiceUnavailable = errors.New("service unavailable")

type ProviderError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Rejected reports a 4xx answer the provider will give again for the same
// request.
func (e *ProviderError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && !e.IsRetryable()
}

func (e *ProviderError) ProviderCode() string { return e.Code }

func (e *ProviderError) ProviderMessage() string { return e.Message }

func IsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	ok := errors.As(err, &providerErr)
	return providerErr, ok
}

// isTransient reports whether another attempt could succeed. A provider
// rejection is never an error, so it never reaches here.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	if providerErr, ok := IsProviderError(err); ok {
		return providerErr.IsRetryable()
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
