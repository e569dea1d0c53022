package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/common/logger"
)

func NewRedisClient(ctx context.Context, log *logger.Logger, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token store url: %w", err)
	}
	opts.DialTimeout = constants.DBPoolConnectTimeout

	client := redis.NewClient(opts)

	for attempt := 1; attempt <= constants.DBPoolMaxAttempts; attempt++ {
		err = client.Ping(ctx).Err()
		if err == nil {
			log.Infof("token store connected: addr=%s db=%d", opts.Addr, opts.DB)
			return client, nil
		}

		log.Warnf("failed to reach token store (attempt %d/%d): %v", attempt, constants.DBPoolMaxAttempts, err)

		if attempt == constants.DBPoolMaxAttempts {
			break
		}
		if sleepErr := sleepCtx(ctx, constants.DBPoolRetryDelay); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to token store: %w", err)
}
