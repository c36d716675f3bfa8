package reminder

import (
	"github.com/smallbiznis/netbill/internal/reminder/domain"
	"github.com/smallbiznis/netbill/internal/reminder/repository"
	"github.com/smallbiznis/netbill/internal/reminder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder.service",
	fx.Provide(repository.NewSettingsRepository),
	fx.Provide(service.NewDispatcher),
	fx.Provide(func(d *service.Dispatcher) domain.Dispatcher { return d }),
)
