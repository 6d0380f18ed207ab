package gestao

import (
	"github.com/saudecred/cobranca/internal/gestao/repository"
	"github.com/saudecred/cobranca/internal/gestao/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gestao",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
