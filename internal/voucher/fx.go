package voucher

import (
	"github.com/smallbiznis/netbill/internal/voucher/domain"
	"github.com/smallbiznis/netbill/internal/voucher/repository"
	"github.com/smallbiznis/netbill/internal/voucher/service"
	"go.uber.org/fx"
)

var Module = fx.Module("voucher.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewReconciler),
	fx.Provide(func(r *service.Reconciler) domain.Reconciler { return r }),
)
