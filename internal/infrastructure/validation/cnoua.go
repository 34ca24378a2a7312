package validation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DanielPopoola/claimpay/internal/config"
	"github.com/DanielPopoola/claimpay/internal/domain"
)

// ezert8Messages maps CNOUA return codes to their operator-facing message.
var ezert8Messages = map[string]string{
	ApprovedCode: "Validação aprovada",
	"EZERT8001":  "Contrato de consórcio inválido",
	"EZERT8002":  "Contrato cancelado",
	"EZERT8003":  "Grupo encerrado",
	"EZERT8004":  "Cota suspensa por inadimplência",
	"EZERT8005":  "Participante não contemplado",
	"EZERT8006":  "Documentação pendente",
	"EZERT8007":  "Valor excede limite permitido",
	"EZERT8008":  "Prazo de carência não cumprido",
	"EZERT8009":  "Beneficiário não autorizado",
	"EZERT8010":  "Duplicidade de solicitação",
}

// EZERT8Message returns the message for code, or a generic one naming the code.
func EZERT8Message(code string) string {
	if msg, ok := ezert8Messages[code]; ok {
		return msg
	}
	return fmt.Sprintf("CNOUA validation error: %s", code)
}

// CNOUAClient validates consortium payments over JSON.
type CNOUAClient struct {
	httpTransport
}

func NewCNOUAClient(cfg config.ProviderConfig) *CNOUAClient {
	return &CNOUAClient{httpTransport: newHTTPTransport(cfg)}
}

func (c *CNOUAClient) Route() domain.ValidationRoute {
	return domain.RouteCNOUA
}

func (c *CNOUAClient) Validate(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
	url := fmt.Sprintf("%s/api/v1/validations", c.baseURL)
	body := newPaymentValidationRequest(claim, req)

	resp, err := sendRequest[PaymentValidationRequest, CNOUAResponse](c.httpTransport, ctx, http.MethodPost, url, &body)
	if err != nil {
		return domain.ValidationOutcome{}, err
	}

	if resp.Ezert8 == "" {
		return domain.ValidationOutcome{}, &ProviderError{
			Code:       "malformed_response",
			Message:    "response carries no EZERT8 code",
			StatusCode: http.StatusOK,
		}
	}

	return domain.ValidationOutcome{
		Route:        domain.RouteCNOUA,
		Approved:     resp.Ezert8 == ApprovedCode,
		ProviderCode: resp.Ezert8,
		Message:      EZERT8Message(resp.Ezert8),
	}, nil
}
