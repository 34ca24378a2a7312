package rest

import (
	"time"

	"github.com/DanielPopoola/claimpay/internal/domain"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// AuthorizationResponse renders BTNF amounts as fixed two-decimal strings.
type AuthorizationResponse struct {
	AuthorizationID     string    `json:"authorization_id"`
	ClaimKey            string    `json:"claim_key"`
	Occurrence          int       `json:"occurrence"`
	Route               string    `json:"route"`
	ProviderCode        string    `json:"provider_code"`
	PrincipalConverted  string    `json:"principal_btnf"`
	CorrectionConverted string    `json:"correction_btnf"`
	Total               string    `json:"total_btnf"`
	PendingBalance      string    `json:"pending_balance"`
	BusinessDate        string    `json:"business_date"`
	AuthorizedAt        time.Time `json:"authorized_at"`
	Attempts            int       `json:"attempts"`
}

func ToAuthorizationResponse(r *domain.AuthorizationResult) AuthorizationResponse {
	return AuthorizationResponse{
		AuthorizationID:     r.AuthorizationID.String(),
		ClaimKey:            r.Key.String(),
		Occurrence:          r.Occurrence,
		Route:               r.Route.String(),
		ProviderCode:        r.ProviderCode,
		PrincipalConverted:  r.PrincipalConverted.Amount().StringFixed(domain.PrecisionMonetary),
		CorrectionConverted: r.CorrectionConverted.Amount().StringFixed(domain.PrecisionMonetary),
		Total:               r.Total.Amount().StringFixed(domain.PrecisionMonetary),
		PendingBalance:      r.PendingBalance.StringFixed(domain.PrecisionMonetary),
		BusinessDate:        r.BusinessDate.Format(time.DateOnly),
		AuthorizedAt:        r.AuthorizedAt,
		Attempts:            r.Attempts,
	}
}

type RouteResponse struct {
	ClaimKey string `json:"claim_key"`
	Route    string `json:"route"`
	Reason   string `json:"reason"`
}
