package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/DanielPopoola/claimpay/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// maxBodyBytes caps the JSON body of a payment request.
const maxBodyBytes = 64 << 10

type AuthorizePaymentRequest struct {
	PaymentType int             `json:"payment_type"`
	Principal   decimal.Decimal `json:"principal"`
	Correction  decimal.Decimal `json:"correction"`
	Currency    string          `json:"currency"`
	Beneficiary string          `json:"beneficiary"`
	PolicyType  string          `json:"policy_type"`
	Notes       string          `json:"notes"`
	OperatorID  string          `json:"operator_id"`
}

func (r AuthorizePaymentRequest) toDomain() domain.PaymentRequest {
	return domain.PaymentRequest{
		PaymentType: r.PaymentType,
		Principal:   r.Principal,
		Correction:  r.Correction,
		Currency:    r.Currency,
		Beneficiary: r.Beneficiary,
		PolicyType:  r.PolicyType,
		Notes:       r.Notes,
		OperatorID:  r.OperatorID,
	}
}

func (h *Handlers) AuthorizePayment(w http.ResponseWriter, r *http.Request) {
	key, err := claimKeyFromPath(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var body AuthorizePaymentRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(fmt.Errorf("malformed payment request: %w", err)), h.logger)
		return
	}

	result, err := h.authorizer.AuthorizePayment(r.Context(), key, body.toDomain())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.SuccessResponse{
		Success: true,
		Data:    rest.ToAuthorizationResponse(result),
	})
}

func (h *Handlers) ValidationRoute(w http.ResponseWriter, r *http.Request) {
	key, err := claimKeyFromPath(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	route, reason, err := h.authorizer.RouteFor(r.Context(), key)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.SuccessResponse{
		Success: true,
		Data: rest.RouteResponse{
			ClaimKey: key.String(),
			Route:    route.String(),
			Reason:   reason,
		},
	})
}

// claimKeyFromPath only rejects segments that are not integers. Range checks
// are left to the service so they are reported with the request violations.
func claimKeyFromPath(r *http.Request) (domain.ClaimKey, error) {
	var v domain.Violations
	parse := func(name string) int {
		n, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			v.Add(domain.ViolationClaimKey, name, "must be an integer")
		}
		return n
	}

	key := domain.ClaimKey{
		InsuranceType: parse("tipseg"),
		Origin:        parse("orgsin"),
		Branch:        parse("rmosin"),
		Number:        parse("numsin"),
	}
	if err := v.Err(); err != nil {
		return domain.ClaimKey{}, err
	}
	return key, nil
}
