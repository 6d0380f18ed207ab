package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	closingdomain "github.com/saudecred/cobranca/internal/closing/domain"
	"github.com/saudecred/cobranca/internal/installment"
	issuerdomain "github.com/saudecred/cobranca/internal/issuer/domain"
	patientdomain "github.com/saudecred/cobranca/internal/patient/domain"
	"github.com/saudecred/cobranca/internal/payer"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string { return v.Message }

func newValidationError(field, code, message string) ValidationError {
	return ValidationError{Field: field, Code: code, Message: message}
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var validation ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: validation.Message}
	}

	switch {
	case errors.Is(err, closingdomain.ErrNotFound),
		errors.Is(err, patientdomain.ErrNotFound),
		errors.Is(err, boletodomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, closingdomain.ErrNotApproved),
		errors.Is(err, installment.ErrInvalidPlan),
		errors.Is(err, payer.ErrMissingIdentity):
		return http.StatusUnprocessableEntity, errorPayload{Type: "unprocessable", Message: err.Error()}
	case errors.Is(err, boletodomain.ErrConflict):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	case errors.Is(err, issuerdomain.ErrNotConfigured),
		errors.Is(err, issuerdomain.ErrUnavailable):
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
