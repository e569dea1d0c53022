package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
)

func StartPoolMetrics(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	startTicker(ctx, interval, func() {
		stats := pool.Stat()
		metrics.DBPoolAcquiredConnections.Set(float64(stats.AcquiredConns()))
		metrics.DBPoolIdleConnections.Set(float64(stats.IdleConns()))
		metrics.DBPoolMaxConnections.Set(float64(stats.MaxConns()))
		metrics.DBPoolTotalConnections.Set(float64(stats.TotalConns()))
	})
}

func StartRedisPoolMetrics(ctx context.Context, client *redis.Client, interval time.Duration) {
	startTicker(ctx, interval, func() {
		stats := client.PoolStats()
		metrics.TokenStorePoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns))
		metrics.TokenStorePoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns))
		metrics.TokenStorePoolConnections.WithLabelValues("stale").Set(float64(stats.StaleConns))
	})
}

func startTicker(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = constants.DBPoolMetricsInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
