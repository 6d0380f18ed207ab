package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	obslogger "github.com/saudecred/cobranca/internal/observability/logger"
	"go.uber.org/zap"
)

// RunSweep triggers one sweep cycle out of band. The lease still applies,
// so a concurrent scheduled run makes this a no-op.
func (s *Server) RunSweep(c *gin.Context) {
	if s.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{
			"type":    "service_unavailable",
			"message": "sweep is not enabled on this instance",
		}})
		return
	}

	log := obslogger.FromContext(c.Request.Context())
	go func() {
		if err := s.sweeper.RunOnce(context.Background()); err != nil {
			log.Error("manual sweep run failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"triggered": true}})
}
