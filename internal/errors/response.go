package errors

import (
	"fmt"
	"net/http"
)

func fmtSprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// ErrorDetail is the machine-readable part of an API error response.
type ErrorDetail struct {
	Message      string         `json:"message"`
	InternalCode string         `json:"internal_code,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the envelope rendered by the HTTP error middleware.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the API representation of err. The message shown to
// callers is the hint when one is set; raw chain messages stay in the logs.
func NewErrorResponse(err error) *ErrorResponse {
	msg := Hint(err)
	if msg == "" {
		msg = "something went wrong"
	}
	return &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message:      msg,
			InternalCode: codeOf(err),
			Details:      Details(err),
		},
	}
}

func codeOf(err error) string {
	switch {
	case IsValidation(err):
		return "validation_error"
	case IsNotFound(err):
		return "not_found"
	case IsAlreadyExists(err):
		return "already_exists"
	case IsOutOfStock(err):
		return "out_of_stock"
	case IsInvalidOperation(err):
		return "invalid_operation"
	case IsPaymentProvider(err):
		return "payment_provider_error"
	case IsDatabase(err):
		return "database_error"
	default:
		return "internal_error"
	}
}

// HTTPStatusFromErr maps the error taxonomy to HTTP status codes.
func HTTPStatusFromErr(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAlreadyExists(err):
		return http.StatusConflict
	case IsOutOfStock(err), IsInvalidOperation(err):
		return http.StatusUnprocessableEntity
	case IsPaymentProvider(err):
		return http.StatusBadGateway
	case IsRetryable(err):
		// Tells the provider to redeliver the webhook.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
