// Package validation talks to the external payment validation systems.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/DanielPopoola/claimpay/internal/config"
	"github.com/DanielPopoola/claimpay/internal/domain"
)

// Provider performs a single validation call with no retry or breaker.
type Provider interface {
	Route() domain.ValidationRoute
	Validate(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error)
	Ping(ctx context.Context) error
}

type httpTransport struct {
	baseURL    string
	healthPath string
	httpClient *http.Client
}

func newHTTPTransport(cfg config.ProviderConfig) httpTransport {
	return httpTransport{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		healthPath: cfg.HealthPath,
		httpClient: &http.Client{
			Timeout: cfg.ClientTimeout,
		},
	}
}

// Ping issues a GET on the health path and expects a 2xx.
func (t httpTransport) Ping(ctx context.Context) error {
	path := t.healthPath
	if path == "" {
		path = "/health"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{
			Code:       "health_check_failed",
			Message:    http.StatusText(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}

func sendRequest[Req any, Resp any](t httpTransport, ctx context.Context, method, url string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp ProviderErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Err == "" {
			return nil, &ProviderError{
				Code:       "unexpected_status",
				Message:    strings.TrimSpace(string(body)),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &ProviderError{
			Code:       errResp.Err,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var providerResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&providerResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &providerResp, nil
}
