package redis

import (
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio-notify/pkg/config"
)

// NewRedisClient keeps timeouts short: callers treat Redis as optional and
// must not stall a request waiting on it.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  300 * time.Millisecond,
		WriteTimeout: 300 * time.Millisecond,
	})
}
