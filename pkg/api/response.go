package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/David-Botos/enrollment-ingress/pkg/transfer"
)

// Error codes carried in the error envelope
const (
	CodeInvalidUpload  = "invalid_upload"
	CodeInvalidInput   = "invalid_input"
	CodeValidation     = "validation_failed"
	CodeConflict       = "conflict"
	CodeReconciliation = "reconciliation_failed"
	CodeScan           = "scan_failed"
	CodeClear          = "clear_failed"
)

// APIError is the error body returned to clients
type APIError struct {
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under "error"
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// DataEnvelope wraps aggregate results
type DataEnvelope struct {
	Data any `json:"data"`
}

// RespondError writes an error envelope with the given status
func RespondError(c *gin.Context, status int, code, message string, details ...string) {
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: message,
			Code:    code,
			Details: details,
		},
	})
}

// RespondOK writes payload with status 200
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusFor maps a pipeline error category to an HTTP status and error code
func statusFor(category transfer.ErrorCategory) (int, string) {
	switch category {
	case transfer.ErrorCategoryInput:
		return http.StatusBadRequest, CodeInvalidInput
	case transfer.ErrorCategoryValidation:
		return http.StatusUnprocessableEntity, CodeValidation
	case transfer.ErrorCategoryConflict:
		return http.StatusConflict, CodeConflict
	case transfer.ErrorCategoryScan:
		return http.StatusInternalServerError, CodeScan
	default:
		return http.StatusInternalServerError, CodeReconciliation
	}
}

// respondPipelineError writes the envelope for a failed ingestion. Storage
// failures keep their cause out of the response body.
func respondPipelineError(c *gin.Context, err error) {
	status, code := statusFor(transfer.CategorizeError(err))

	message := "Failed to process upload"
	var details []string
	var tErr *transfer.Error
	if errors.As(err, &tErr) {
		message = tErr.Message
		details = tErr.Details
	}
	if status >= http.StatusInternalServerError {
		details = nil
	}
	RespondError(c, status, code, message, details...)
}
