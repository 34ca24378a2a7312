package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
)

// ValidationRouter decides which external system validates a claim's payment.
type ValidationRouter struct {
	claims application.ClaimRepository
	logger *slog.Logger
}

func NewValidationRouter(claims application.ClaimRepository, logger *slog.Logger) *ValidationRouter {
	return &ValidationRouter{
		claims: claims,
		logger: logger,
	}
}

// DetermineRoute sends consortium products to CNOUA without touching the
// contract table. Otherwise a contract numbered above zero means SIPUA and
// anything else, including no contract at all, falls back to SIMDA.
func (r *ValidationRouter) DetermineRoute(ctx context.Context, claim *domain.ClaimMaster) (domain.ValidationRoute, error) {
	route, _, err := r.resolve(ctx, claim)
	return route, err
}

// RouteReason explains the decision DetermineRoute would make.
func (r *ValidationRouter) RouteReason(ctx context.Context, claim *domain.ClaimMaster) (domain.ValidationRoute, string, error) {
	return r.resolve(ctx, claim)
}

// ValidateProduct checks that the claim's product can be routed at all.
func (r *ValidationRouter) ValidateProduct(ctx context.Context, claim *domain.ClaimMaster) (domain.ProductValidation, error) {
	if claim.ProductCode <= 0 {
		return domain.ProductValidation{
			Valid:   false,
			Route:   domain.RouteNone,
			Message: fmt.Sprintf("invalid product code %d", claim.ProductCode),
		}, nil
	}

	route, _, err := r.resolve(ctx, claim)
	if err != nil {
		return domain.ProductValidation{}, err
	}

	if route == domain.RouteCNOUA && claim.Policy.IsZero() {
		return domain.ProductValidation{
			Valid:   false,
			Route:   route,
			Message: fmt.Sprintf("policy is required for consortium products (product %d)", claim.ProductCode),
		}, nil
	}

	if route == domain.RouteNone {
		return domain.ProductValidation{
			Valid:   false,
			Route:   route,
			Message: fmt.Sprintf("no validation route configured for product %d", claim.ProductCode),
		}, nil
	}

	return domain.ProductValidation{Valid: true, Route: route}, nil
}

func (r *ValidationRouter) resolve(ctx context.Context, claim *domain.ClaimMaster) (domain.ValidationRoute, string, error) {
	if claim.IsConsortium() {
		return domain.RouteCNOUA, fmt.Sprintf("product %d is a consortium product", claim.ProductCode), nil
	}

	contracts, err := r.claims.FindContractsByPolicy(ctx, claim.Policy, application.ContractFilter{})
	if err != nil {
		return domain.RouteNone, "", fmt.Errorf("failed to look up contracts for claim %s: %w", claim.Key, err)
	}

	for _, c := range contracts {
		if c.IsClosedPensionEntity() {
			return domain.RouteSIPUA, fmt.Sprintf("policy has closed pension entity contract %d", c.ContractNumber), nil
		}
	}

	r.logger.Debug("no EFP contract for policy, defaulting to SIMDA",
		"claim_key", claim.Key.String(),
		"contracts", len(contracts),
	)

	if len(contracts) == 0 {
		return domain.RouteSIMDA, "no contract on policy, housing validation applies", nil
	}
	return domain.RouteSIMDA, "policy has a housing contract", nil
}
