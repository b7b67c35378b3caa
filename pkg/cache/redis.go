package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/usecase-tracker-api/pkg/config"
)

// Addr renders host:port for the configured Redis server.
func Addr(cfg config.RedisConfig) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// NewRedis returns a configured Redis client after verifying connectivity.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     Addr(cfg),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", Addr(cfg), err)
	}

	return client, nil
}

// DashboardKey is the cache key for a tenant's dashboard summary as seen by role.
func DashboardKey(tenantID, role string) string {
	return fmt.Sprintf("dashboard:%s:summary:%s", tenantID, role)
}

// DashboardPattern matches every cached dashboard entry of a tenant.
func DashboardPattern(tenantID string) string {
	return fmt.Sprintf("dashboard:%s:*", tenantID)
}
