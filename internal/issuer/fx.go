package issuer

import (
	"github.com/saudecred/cobranca/internal/issuer/bank"
	"go.uber.org/fx"
)

var Module = fx.Module("issuer",
	fx.Provide(bank.New),
)
