package cache

import (
	"github.com/andefred/eldsal/internal/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
)

// limiterDatabase keeps rate limiter counters apart from cached values (DB 0).
const limiterDatabase = 1

// NewLimiterStorage returns a Fiber storage on the cache server for the
// request rate limiter, so limits hold across instances.
func NewLimiterStorage(cfg config.CacheConfig) fiber.Storage {
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
