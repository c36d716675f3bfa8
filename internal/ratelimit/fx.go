package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/netbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const reminderBucketKey = "netbill:ratelimit:reminder"

var Module = fx.Module("rate.limit",
	fx.Provide(NewReminderLimiter),
)

// NewReminderLimiter returns the limiter for outbound reminder messages.
// With REDIS_ADDR set the budget is shared through redis, otherwise it is
// kept in process.
func NewReminderLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Limiter {
	limit := cfg.Reminder.Rate
	window := cfg.Reminder.RateWindow
	log = log.Named("ratelimit")

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("using in-process reminder limiter", zap.Int("limit", limit), zap.Duration("window", window))
		return NewWindowLimiter(limit, window)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed, reminder sends will fail until it recovers", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis reminder limiter", zap.String("addr", addr), zap.Int("limit", limit), zap.Duration("window", window))
	return NewRedisLimiter(NewTokenBucket(client), reminderBucketKey, limit, window)
}
