package cleanup

import (
	"context"
	"time"

	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartTokenSweep periodically drops expired tokens until ctx is cancelled.
func StartTokenSweep(ctx context.Context, store ExpiredDeleter, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpired(ctx)
			if err != nil {
				log.Errorf("verification token sweep failed: %v", err)
				continue
			}
			if deleted > 0 {
				metrics.VerificationTokensSwept.Add(float64(deleted))
				log.Infof("verification token sweep: deleted %d expired tokens", deleted)
			}
		}
	}
}
