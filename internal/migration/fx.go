package migration

import (
	"github.com/smallbiznis/netbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates the schema during fx startup. Used by the migrate command
// and by serve when AUTO_MIGRATE is set.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Migrate(conn, cfg.DBType); err != nil {
			return err
		}
		log.Named("migration").Info("schema up to date", zap.String("db_type", cfg.DBType))
		return nil
	}),
)
