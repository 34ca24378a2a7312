package validation

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/DanielPopoola/claimpay/internal/config"
	"github.com/DanielPopoola/claimpay/internal/domain"
)

const (
	sipuaAction = "urn:sipua:ValidatePayment"
	simdaAction = "urn:simda:ValidatePayment"
)

// SOAPClient validates payments against the SOAP services SIPUA and SIMDA.
type SOAPClient struct {
	httpTransport
	route  domain.ValidationRoute
	action string
	path   string
}

// NewSIPUAClient validates closed pension entity payments.
func NewSIPUAClient(cfg config.ProviderConfig) *SOAPClient {
	return &SOAPClient{
		httpTransport: newHTTPTransport(cfg),
		route:         domain.RouteSIPUA,
		action:        sipuaAction,
		path:          "/ws/sipua",
	}
}

// NewSIMDAClient validates housing payments.
func NewSIMDAClient(cfg config.ProviderConfig) *SOAPClient {
	return &SOAPClient{
		httpTransport: newHTTPTransport(cfg),
		route:         domain.RouteSIMDA,
		action:        simdaAction,
		path:          "/ws/simda",
	}
}

func (c *SOAPClient) Route() domain.ValidationRoute {
	return c.route
}

func (c *SOAPClient) Validate(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
	envelope := soapRequestEnvelope{
		SoapNS: soapEnvelopeNS,
		Body:   soapRequestBody{Payload: newPaymentValidationRequest(claim, req)},
	}

	resp, err := c.call(ctx, envelope)
	if err != nil {
		return domain.ValidationOutcome{}, err
	}

	message := resp.Message
	if message == "" && resp.ReturnCode != ApprovedCode {
		message = fmt.Sprintf("%s validation error: %s", c.route, resp.ReturnCode)
	}

	return domain.ValidationOutcome{
		Route:        c.route,
		Approved:     resp.ReturnCode == ApprovedCode,
		ProviderCode: resp.ReturnCode,
		Message:      message,
	}, nil
}

func (c *SOAPClient) call(ctx context.Context, envelope soapRequestEnvelope) (*ValidatePaymentResponse, error) {
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("error marshalling soap envelope: %w", err)
	}

	body := append([]byte(xml.Header), payload...)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("Accept", "text/xml")
	httpReq.Header.Set("SOAPAction", c.action)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading soap response: %w", err)
	}

	var decoded soapResponseEnvelope
	if err := xml.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &ProviderError{
				Code:       "unexpected_status",
				Message:    strings.TrimSpace(string(raw)),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("error decoding soap response: %w", err)
	}

	if fault := decoded.Body.Fault; fault != nil {
		return nil, faultError(fault, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Code:       "unexpected_status",
			Message:    http.StatusText(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	if decoded.Body.Response == nil || decoded.Body.Response.ReturnCode == "" {
		return nil, &ProviderError{
			Code:       "malformed_response",
			Message:    "soap body carries no return code",
			StatusCode: resp.StatusCode,
		}
	}

	return decoded.Body.Response, nil
}

// faultError treats a Client fault as the caller's mistake and anything else
// as a server fault.
func faultError(fault *soapFault, status int) *ProviderError {
	if strings.HasSuffix(fault.Code, "Client") {
		if status < 400 || status >= 500 {
			status = http.StatusBadRequest
		}
	} else if status < 500 {
		status = http.StatusInternalServerError
	}
	return &ProviderError{
		Code:       fault.Code,
		Message:    fault.String,
		StatusCode: status,
	}
}
