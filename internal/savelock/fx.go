package savelock

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/rebateplan/internal/config"
)

// Module provides the optional redis-backed save lock.
var Module = fx.Module("savelock",
	fx.Provide(
		newRedisClient,
		NewLocker,
	),
)

func newRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, distributed save lock disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
