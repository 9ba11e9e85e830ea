package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/newspaper/config"
)

// NewRedis builds a client from config. It returns nil when no redis host is
// configured, in which case callers use their in-memory fallbacks.
func NewRedis(ctx context.Context, cfg config.AppConfig) (*redis.Client, error) {
	if cfg.RedisHost == "" {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

// NewSessionStore prefers redis and falls back to memory (single instance only).
func NewSessionStore(rc *redis.Client) SessionStore {
	if rc != nil {
		return NewRedisSessionStore(rc)
	}
	return NewMemorySessionStore()
}
