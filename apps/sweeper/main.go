package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/boleto"
	"github.com/saudecred/cobranca/internal/clock"
	"github.com/saudecred/cobranca/internal/closing"
	"github.com/saudecred/cobranca/internal/config"
	"github.com/saudecred/cobranca/internal/gestao"
	"github.com/saudecred/cobranca/internal/issuer"
	"github.com/saudecred/cobranca/internal/migration"
	"github.com/saudecred/cobranca/internal/observability"
	"github.com/saudecred/cobranca/internal/patient"
	"github.com/saudecred/cobranca/internal/ratelimit"
	"github.com/saudecred/cobranca/internal/sweep"
	"github.com/saudecred/cobranca/pkg/db"
	"go.uber.org/fx"
)

// Headless sweeper: issues due boletos and refreshes overdue records
// without exposing the HTTP API. The redis lease keeps it from racing the
// monolith's built-in sweep.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		closing.Module,
		patient.Module,
		issuer.Module,
		boleto.Module,
		gestao.Module,
		sweep.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
