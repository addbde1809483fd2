package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to redis for the quote cache. The cache is optional:
// no configured host or a failed ping returns nil and the service runs without it.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		slog.Info("redis not configured, quote cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		slog.Error("error while connecting redis, quote cache disabled", slog.String("err", err.Error()))
		return nil
	}
	slog.Info("redis connected", slog.String("pong", pong))

	return rdb
}
