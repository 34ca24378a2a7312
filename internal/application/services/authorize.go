package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/config"
	"github.com/DanielPopoola/claimpay/internal/domain"
)

// RateSource yields the conversion rate in force on a date.
type RateSource interface {
	RateFor(ctx context.Context, asOf time.Time) (domain.CurrencyAmount, error)
}

// ValidationClients indexes the external validation clients by route.
type ValidationClients map[domain.ValidationRoute]application.ValidationClient

func NewValidationClients(clients ...application.ValidationClient) ValidationClients {
	out := make(ValidationClients, len(clients))
	for _, c := range clients {
		out[c.Route()] = c
	}
	return out
}

type PaymentAuthorizationService struct {
	claims      application.ClaimRepository
	router      *ValidationRouter
	clients     ValidationClients
	rates       RateSource
	calendar    application.SystemControlRepository
	coordinator *TransactionCoordinator
	registry    *ReconciliationRegistry
	converter   *CurrencyConverter
	validator   *RequestValidator
	systemID    string
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

func NewPaymentAuthorizationService(
	claims application.ClaimRepository,
	router *ValidationRouter,
	clients ValidationClients,
	rates RateSource,
	calendar application.SystemControlRepository,
	coordinator *TransactionCoordinator,
	registry *ReconciliationRegistry,
	cfg config.AuthorizationConfig,
	logger *slog.Logger,
) *PaymentAuthorizationService {
	maxAttempts := cfg.MaxConflictAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PaymentAuthorizationService{
		claims:      claims,
		router:      router,
		clients:     clients,
		rates:       rates,
		calendar:    calendar,
		coordinator: coordinator,
		registry:    registry,
		converter:   NewCurrencyConverter(),
		validator:   NewRequestValidator(),
		systemID:    cfg.SystemID,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// AuthorizePayment validates, routes, converts and persists one payment.
// A concurrency conflict reruns the whole sequence against fresh claim state,
// at most maxAttempts times. An ambiguous commit is never retried.
func (s *PaymentAuthorizationService) AuthorizePayment(ctx context.Context, key domain.ClaimKey, req domain.PaymentRequest) (*domain.AuthorizationResult, error) {
	logger := s.logger.With("claim_key", key.String(), "operator", req.OperatorID)

	claim, err := s.validateRequest(ctx, key, req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			claim, err = s.claims.FindClaim(ctx, key)
			if err != nil {
				return nil, err
			}
		}

		result, err := s.authorizeOnce(ctx, claim, req)
		if err == nil {
			result.Attempts = attempt
			return result, nil
		}

		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return nil, err
		}

		lastErr = err
		logger.Warn("concurrency conflict on claim",
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
			"occurrence", claim.HistoryOccurrenceCounter,
		)
	}

	return nil, lastErr
}

// validateRequest collects shape violations and claim-dependent violations into
// a single list.
func (s *PaymentAuthorizationService) validateRequest(ctx context.Context, key domain.ClaimKey, req domain.PaymentRequest) (*domain.ClaimMaster, error) {
	var violations domain.Violations
	violations.Merge(key.Validate())

	if err := s.validator.Validate(req); err != nil {
		var verr *domain.ViolationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		violations.Merge(err)
	}

	if key.Validate() != nil {
		return nil, violations.Err()
	}

	claim, err := s.claims.FindClaim(ctx, key)
	if err != nil {
		if violations.Len() > 0 {
			return nil, violations.Err()
		}
		return nil, err
	}

	violations.Merge(s.validator.ValidateForClaim(claim, req))
	if err := violations.Err(); err != nil {
		return nil, err
	}

	return claim, nil
}

func (s *PaymentAuthorizationService) authorizeOnce(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (*domain.AuthorizationResult, error) {
	requested := req.RequestedAmount()
	if !claim.CanPay(requested) {
		return nil, domain.NewInsufficientBalanceError(requested, claim.PendingBalance())
	}

	route, outcome, err := s.validateExternally(ctx, claim, req)
	if err != nil {
		return nil, err
	}

	businessDate, err := s.calendar.BusinessDate(ctx, s.systemID)
	if err != nil {
		return nil, fmt.Errorf("failed to read business date: %w", err)
	}

	conversion, err := s.convert(ctx, req, businessDate)
	if err != nil {
		return nil, err
	}

	txc := domain.NewTransactionContext(claim.Key, req.OperatorID, businessDate, s.now())
	persisted, err := s.coordinator.Execute(ctx, CoordinatorInput{
		Context:    txc,
		Claim:      claim,
		Request:    req,
		Conversion: conversion,
	})
	if err != nil {
		var ambiguous *domain.AmbiguousCommitError
		if errors.As(err, &ambiguous) && s.registry != nil {
			s.registry.Track(PendingReconciliation{
				AuthorizationID: ambiguous.AuthorizationID,
				Key:             ambiguous.Key,
				Occurrence:      ambiguous.Occurrence,
				OperatorID:      req.OperatorID,
				DetectedAt:      s.now(),
			})
		}
		return nil, err
	}

	return &domain.AuthorizationResult{
		AuthorizationID:     txc.AuthorizationID,
		Key:                 claim.Key,
		Occurrence:          persisted.Occurrence,
		Route:               route,
		ProviderCode:        outcome.ProviderCode,
		PrincipalConverted:  conversion.PrincipalConverted,
		CorrectionConverted: conversion.CorrectionConverted,
		Total:               conversion.Total,
		PendingBalance:      persisted.PendingBalance,
		BusinessDate:        businessDate,
		AuthorizedAt:        txc.StartedAt,
	}, nil
}

func (s *PaymentAuthorizationService) validateExternally(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationRoute, domain.ValidationOutcome, error) {
	product, err := s.router.ValidateProduct(ctx, claim)
	if err != nil {
		return domain.RouteNone, domain.ValidationOutcome{}, err
	}
	if !product.Valid {
		return domain.RouteNone, domain.ValidationOutcome{}, domain.NewInvalidProductError(product.Message)
	}

	route := product.Route
	client, ok := s.clients[route]
	if route == domain.RouteNone || !ok {
		return route, domain.ValidationOutcome{}, application.NewRouteNotConfiguredError(route)
	}

	outcome, err := client.Validate(ctx, claim, req)
	if err != nil {
		var rejection domain.ProviderRejection
		if errors.As(err, &rejection) && rejection.Rejected() {
			s.logger.Info("external validation refused request",
				"claim_key", claim.Key.String(),
				"route", route.String(),
				"provider_code", rejection.ProviderCode(),
			)
			return route, domain.ValidationOutcome{}, &domain.ExternalValidationError{
				Route:        route,
				ProviderCode: rejection.ProviderCode(),
				Message:      rejection.ProviderMessage(),
				Err:          err,
			}
		}
		return route, domain.ValidationOutcome{}, &domain.ExternalValidationError{
			Route:       route,
			Message:     err.Error(),
			Unavailable: true,
			Err:         err,
		}
	}

	if !outcome.Approved {
		s.logger.Info("external validation rejected payment",
			"claim_key", claim.Key.String(),
			"route", route.String(),
			"provider_code", outcome.ProviderCode,
		)
		return route, outcome, &domain.ExternalValidationError{
			Route:        route,
			ProviderCode: outcome.ProviderCode,
			Message:      outcome.Message,
		}
	}

	return route, outcome, nil
}

func (s *PaymentAuthorizationService) convert(ctx context.Context, req domain.PaymentRequest, businessDate time.Time) (domain.ConversionResult, error) {
	rate, err := s.rates.RateFor(ctx, businessDate)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	principal, err := domain.NewMoney(req.Principal, req.Currency)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	correction, err := domain.NewMoney(req.Correction, req.Currency)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	return s.converter.Convert(principal, correction, rate, businessDate)
}

// RouteFor loads a claim and explains its validation route.
func (s *PaymentAuthorizationService) RouteFor(ctx context.Context, key domain.ClaimKey) (domain.ValidationRoute, string, error) {
	if err := key.Validate(); err != nil {
		return domain.RouteNone, "", err
	}
	claim, err := s.claims.FindClaim(ctx, key)
	if err != nil {
		return domain.RouteNone, "", err
	}
	return s.router.RouteReason(ctx, claim)
}
