package closing

import (
	"github.com/saudecred/cobranca/internal/closing/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("closing",
	fx.Provide(repository.Provide),
)
