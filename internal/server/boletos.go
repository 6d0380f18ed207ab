package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) IssueClosing(c *gin.Context) {
	closingID, err := parseClosingID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.boletoSvc.IssueClosing(c.Request.Context(), closingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	code := http.StatusOK
	if result.Persisted > 0 {
		code = http.StatusCreated
	}
	c.JSON(code, gin.H{"data": result})
}

func (s *Server) ListBoletos(c *gin.Context) {
	closingID, err := parseClosingID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	boletos, err := s.boletoSvc.ListByClosing(c.Request.Context(), closingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": boletos})
}

func parseClosingID(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError("id", "invalid_id", "invalid closing id")
	}
	return id, nil
}
