package messaging

import (
	"github.com/smallbiznis/netbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.messaging",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Sender {
	if cfg.Messaging.GatewayURL == "" {
		log.Warn("MESSAGING_GATEWAY_URL is empty, reminders are logged and stay unsent")
		return NewLogSender(log)
	}
	return NewGatewaySender(cfg.Messaging.GatewayURL, cfg.Messaging.GatewayToken, cfg.Messaging.Timeout)
}
