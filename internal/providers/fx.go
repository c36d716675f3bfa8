package providers

import (
	"github.com/smallbiznis/netbill/internal/providers/messaging"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	messaging.Module,
)
