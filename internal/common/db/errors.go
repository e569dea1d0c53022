package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/AlibekovAA/margarine/internal/observability/metrics"
)

// ObserveOperation records the duration of a store call and, for errors other
// than the expected ones, counts them and wraps them with the operation name.
func ObserveOperation(store, operation string, startTime time.Time, err error, expected ...error) error {
	metrics.StoreOperationDurationSeconds.WithLabelValues(store, operation).Observe(time.Since(startTime).Seconds())

	if err == nil {
		return nil
	}
	for _, e := range expected {
		if errors.Is(err, e) {
			return err
		}
	}

	metrics.StoreOperationErrors.WithLabelValues(store, operation, fmt.Sprintf("%T", err)).Inc()
	return fmt.Errorf("failed to %s: %w", operation, err)
}
