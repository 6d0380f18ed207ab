package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gestaodomain "github.com/saudecred/cobranca/internal/gestao/domain"
)

type importPlanRequest struct {
	AutoIssue  bool   `json:"auto_issue"`
	LeadDays   int    `json:"lead_days"`
	ImportedBy string `json:"imported_by"`
}

func (s *Server) ImportPlan(c *gin.Context) {
	closingID, err := parseClosingID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req importPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", "invalid request body"))
		return
	}
	if req.LeadDays < 0 {
		AbortWithError(c, newValidationError("lead_days", "invalid_lead_days", "lead_days must not be negative"))
		return
	}

	importedBy := strings.TrimSpace(req.ImportedBy)
	if importedBy == "" {
		importedBy = "api"
	}

	records, err := s.gestaoSvc.ImportPlan(c.Request.Context(), gestaodomain.ImportPlanRequest{
		ClosingID:  closingID,
		AutoIssue:  req.AutoIssue,
		LeadDays:   req.LeadDays,
		ImportedBy: importedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": records})
}

func (s *Server) ListGestao(c *gin.Context) {
	closingID, err := parseClosingID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records, err := s.gestaoSvc.ListByClosing(c.Request.Context(), closingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}
