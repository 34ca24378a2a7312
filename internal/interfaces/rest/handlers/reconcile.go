package handlers

import (
	"net/http"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handlers) Reconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "authorizationID"))
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	outcome, err := h.reconciler.Reconcile(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.SuccessResponse{
		Success: true,
		Data:    outcome,
	})
}
