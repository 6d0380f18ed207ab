package boleto

import (
	"github.com/saudecred/cobranca/internal/boleto/repository"
	"github.com/saudecred/cobranca/internal/boleto/service"
	"go.uber.org/fx"
)

var Module = fx.Module("boleto",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
