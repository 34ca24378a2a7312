package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code            string             `json:"code"`
	Message         string             `json:"message"`
	Category        string             `json:"category,omitempty"`
	Violations      []domain.Violation `json:"violations,omitempty"`
	ProviderCode    string             `json:"provider_code,omitempty"`
	AuthorizationID string             `json:"authorization_id,omitempty"`
}

// BuildErrorResponse maps application errors to a status code and body.
// Every violation of a rejected request is listed, not just the first.
func BuildErrorResponse(err error) (int, ErrorResponse) {
	detail := ErrorDetail{
		Code:     application.ToErrorCode(err),
		Message:  err.Error(),
		Category: string(application.CategorizeError(err)),
	}

	var violations *domain.ViolationError
	if errors.As(err, &violations) {
		detail.Message = "payment request violates business rules"
		detail.Violations = violations.Violations()
	}

	var external *domain.ExternalValidationError
	if errors.As(err, &external) {
		detail.ProviderCode = external.ProviderCode
	}

	var ambiguous *domain.AmbiguousCommitError
	if errors.As(err, &ambiguous) {
		detail.AuthorizationID = ambiguous.AuthorizationID.String()
		detail.Message = "payment outcome is unknown; do not resubmit until the authorization is reconciled"
	}

	if svcErr, ok := application.IsServiceError(err); ok && svcErr.HTTPStatus >= http.StatusInternalServerError {
		detail.Message = svcErr.Message
	}

	return application.ToHTTPStatus(err), ErrorResponse{
		Success: false,
		Error:   detail,
	}
}

// WriteError writes the mapped error. Server-side failures are logged.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode, response := BuildErrorResponse(err)

	if statusCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			"code", response.Error.Code,
			"status", statusCode,
			"error", err,
		)
	}

	WriteJSON(w, statusCode, response)
}

func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
