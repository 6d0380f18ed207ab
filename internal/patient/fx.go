package patient

import (
	"github.com/saudecred/cobranca/internal/patient/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("patient",
	fx.Provide(repository.Provide),
)
