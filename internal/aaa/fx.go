package aaa

import (
	"github.com/smallbiznis/netbill/internal/aaa/coa"
	"github.com/smallbiznis/netbill/internal/aaa/domain"
	"github.com/smallbiznis/netbill/internal/aaa/repository"
	"github.com/smallbiznis/netbill/internal/config"
	obsmetrics "github.com/smallbiznis/netbill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("aaa",
	fx.Provide(provideStore),
	fx.Provide(provideDisconnector),
)

func provideStore(db *gorm.DB, cfg config.Config) domain.Store {
	return repository.NewStore(db, cfg.AAALocation())
}

type disconnectorParams struct {
	fx.In

	Store   domain.Store
	Config  config.Config
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func provideDisconnector(p disconnectorParams) domain.Disconnector {
	return coa.NewDisconnector(p.Store, coa.Config{
		Port:          p.Config.CoA.Port,
		DefaultSecret: p.Config.CoA.DefaultSecret,
		Timeout:       p.Config.CoA.Timeout,
	}, p.Log).WithMetrics(p.Metrics)
}
