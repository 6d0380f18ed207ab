package migration

import (
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	closingdomain "github.com/saudecred/cobranca/internal/closing/domain"
	"github.com/saudecred/cobranca/internal/config"
	gestaodomain "github.com/saudecred/cobranca/internal/gestao/domain"
	patientdomain "github.com/saudecred/cobranca/internal/patient/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		// versioned SQL migrations target postgres; other engines (sqlite
		// in tests, mysql deployments) use the model-driven fallback
		if cfg.DBType != "postgres" {
			log.Info("running auto-migration", zap.String("db_type", cfg.DBType))
			return conn.AutoMigrate(
				&closingdomain.Closing{},
				&patientdomain.Patient{},
				&boletodomain.Boleto{},
				&gestaodomain.Record{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
