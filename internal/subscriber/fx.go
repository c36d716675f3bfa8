package subscriber

import (
	"github.com/smallbiznis/netbill/internal/subscriber/domain"
	"github.com/smallbiznis/netbill/internal/subscriber/repository"
	"github.com/smallbiznis/netbill/internal/subscriber/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscriber.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewIsolator),
	fx.Provide(func(i *service.Isolator) domain.Isolator { return i }),
)
