package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/application/services"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/DanielPopoola/claimpay/internal/interfaces/rest/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type PaymentAuthorizer interface {
	AuthorizePayment(ctx context.Context, key domain.ClaimKey, req domain.PaymentRequest) (*domain.AuthorizationResult, error)
	RouteFor(ctx context.Context, key domain.ClaimKey) (domain.ValidationRoute, string, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, id uuid.UUID) (services.ReconciliationOutcome, error)
}

type Handlers struct {
	authorizer PaymentAuthorizer
	reconciler Reconciler
	clients    []application.ValidationClient
	logger     *slog.Logger
}

func NewHandlers(
	authorizer PaymentAuthorizer,
	reconciler Reconciler,
	clients []application.ValidationClient,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		authorizer: authorizer,
		reconciler: reconciler,
		clients:    clients,
		logger:     logger,
	}
}

// Routes mounts the API on a chi router behind the request middleware chain.
func (h *Handlers) Routes(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(h.logger))
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health/validation", h.ValidationHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/claims/{tipseg}/{orgsin}/{rmosin}/{numsin}", func(r chi.Router) {
			r.Post("/payments", h.AuthorizePayment)
			r.Get("/validation-route", h.ValidationRoute)
		})
		r.Get("/authorizations/{authorizationID}/reconciliation", h.Reconciliation)
	})

	return r
}
