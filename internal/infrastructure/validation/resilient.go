package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/config"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// ResilientClient wraps a Provider with a per-attempt timeout, retry on
// transient failures and a circuit breaker owned by the route.
type ResilientClient struct {
	provider       Provider
	breaker        *gobreaker.CircuitBreaker[domain.ValidationOutcome]
	retrier        retrier
	attemptTimeout time.Duration
	slowThreshold  time.Duration
	logger         *slog.Logger
}

func NewResilientClient(
	provider Provider,
	providerCfg config.ProviderConfig,
	retryCfg config.RetryConfig,
	breakerCfg config.BreakerConfig,
	logger *slog.Logger,
) *ResilientClient {
	logger = logger.With("route", provider.Route().String())

	halfOpen := breakerCfg.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}
	threshold := breakerCfg.ConsecutiveFailures

	breaker := gobreaker.NewCircuitBreaker[domain.ValidationOutcome](gobreaker.Settings{
		Name:        provider.Route().String(),
		MaxRequests: halfOpen,
		Timeout:     breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
	})

	return &ResilientClient{
		provider:       provider,
		breaker:        breaker,
		retrier:        newRetrier(retryCfg, logger),
		attemptTimeout: providerCfg.AttemptTimeout,
		slowThreshold:  providerCfg.SlowThreshold,
		logger:         logger,
	}
}

func (c *ResilientClient) Route() domain.ValidationRoute {
	return c.provider.Route()
}

// Validate returns ErrServiceUnavailable while the circuit is open. A
// provider rejection is an approved=false outcome, not an error.
func (c *ResilientClient) Validate(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
	start := time.Now()

	outcome, attempts, err := retry(ctx, c.retrier, func(ctx context.Context) (domain.ValidationOutcome, error) {
		return c.breaker.Execute(func() (domain.ValidationOutcome, error) {
			attemptCtx, cancel := c.withAttemptTimeout(ctx)
			defer cancel()
			return c.provider.Validate(attemptCtx, claim, req)
		})
	})

	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s circuit is %s", ErrServiceUnavailable, c.Route(), c.breaker.State())
		}
		c.logger.Error("validation call failed",
			"claim_key", claim.Key.String(),
			"attempts", attempts,
			"elapsed", elapsed,
			"error", err,
		)
		return domain.ValidationOutcome{}, err
	}

	outcome.Route = c.Route()
	outcome.ResponseTime = elapsed
	c.logger.Info("validation call completed",
		"claim_key", claim.Key.String(),
		"approved", outcome.Approved,
		"provider_code", outcome.ProviderCode,
		"attempts", attempts,
		"elapsed", elapsed,
	)
	return outcome, nil
}

// CheckHealth does not ping the provider while the circuit is open.
func (c *ResilientClient) CheckHealth(ctx context.Context) application.HealthStatus {
	status := application.HealthStatus{
		System:    c.Route().String(),
		CheckedAt: time.Now(),
		Metrics:   c.metrics(),
	}

	state := c.breaker.State()
	if state == gobreaker.StateOpen {
		status.Status = application.HealthUnhealthy
		status.Error = "circuit breaker is open"
		return status
	}

	pingCtx, cancel := c.withAttemptTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.provider.Ping(pingCtx)
	elapsed := time.Since(start)
	status.ResponseTimeMs = elapsed.Milliseconds()

	switch {
	case err != nil:
		status.Status = application.HealthUnhealthy
		status.Error = err.Error()
	case state == gobreaker.StateHalfOpen:
		status.Status = application.HealthDegraded
	case c.slowThreshold > 0 && elapsed > c.slowThreshold:
		status.Status = application.HealthDegraded
	default:
		status.Status = application.HealthHealthy
	}

	return status
}

func (c *ResilientClient) metrics() map[string]any {
	counts := c.breaker.Counts()
	return map[string]any{
		"breaker_state":        c.breaker.State().String(),
		"requests":             counts.Requests,
		"total_successes":      counts.TotalSuccesses,
		"total_failures":       counts.TotalFailures,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

func (c *ResilientClient) withAttemptTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.attemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.attemptTimeout)
}

// NewClients builds the three route clients from configuration.
func NewClients(cfg *config.Config, logger *slog.Logger) []application.ValidationClient {
	build := func(p Provider, pc config.ProviderConfig) application.ValidationClient {
		return NewResilientClient(p, pc, cfg.Retry, cfg.Breaker, logger)
	}
	return []application.ValidationClient{
		build(NewCNOUAClient(cfg.Validation.CNOUA), cfg.Validation.CNOUA),
		build(NewSIPUAClient(cfg.Validation.SIPUA), cfg.Validation.SIPUA),
		build(NewSIMDAClient(cfg.Validation.SIMDA), cfg.Validation.SIMDA),
	}
}
