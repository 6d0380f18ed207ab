package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/config"
	gestaodomain "github.com/saudecred/cobranca/internal/gestao/domain"
	"github.com/saudecred/cobranca/internal/observability"
	obslogger "github.com/saudecred/cobranca/internal/observability/logger"
	"github.com/saudecred/cobranca/internal/sweep"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(obsCfg, log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	boletoSvc boletodomain.Service
	gestaoSvc gestaodomain.Service
	sweeper   *sweep.Sweeper
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	BoletoSvc boletodomain.Service
	GestaoSvc gestaodomain.Service
	Sweeper   *sweep.Sweeper `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		boletoSvc: p.BoletoSvc,
		gestaoSvc: p.GestaoSvc,
		sweeper:   p.Sweeper,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	{
		v1.POST("/closings/:id/boletos", s.IssueClosing)
		v1.GET("/closings/:id/boletos", s.ListBoletos)
		v1.POST("/closings/:id/gestao/import", s.ImportPlan)
		v1.GET("/closings/:id/gestao", s.ListGestao)
		v1.POST("/webhooks/bank", s.BankWebhook)
		v1.POST("/sweep/run", s.RunSweep)
	}
}
