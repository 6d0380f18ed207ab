package server

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
)

// bankWebhookRequest mirrors the issuer's notification payload. Only the
// document number is trusted for addressing; the external id is ignored.
type bankWebhookRequest struct {
	DocumentNumber string   `json:"numeroDocumento" binding:"required"`
	Situation      string   `json:"situacao" binding:"required"`
	PaymentDate    string   `json:"dataPagamento"`
	PaidAmount     *float64 `json:"valorPago"`
}

func (s *Server) BankWebhook(c *gin.Context) {
	var req bankWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", "invalid webhook payload"))
		return
	}

	var paymentDate *time.Time
	if raw := strings.TrimSpace(req.PaymentDate); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("dataPagamento", "invalid_date", "payment date must be YYYY-MM-DD"))
			return
		}
		paymentDate = &parsed
	}

	var paymentCents *int64
	if req.PaidAmount != nil {
		cents := int64(math.Round(*req.PaidAmount * 100))
		paymentCents = &cents
	}

	boleto, err := s.boletoSvc.ApplySituation(c.Request.Context(), boletodomain.ApplySituationRequest{
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		Situation:      req.Situation,
		PaymentDate:    paymentDate,
		PaymentCents:   paymentCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"boleto_id": boleto.ID,
		"status":    boleto.Status,
	}})
}
