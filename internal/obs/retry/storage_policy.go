package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// StoragePolicy is the short in-line retry used for durable-store writes on
// the outage and speed-test paths. The write is retried again on the next
// scheduling tick anyway, so the policy stays small.
func StoragePolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 3,
		Backoff:  ExpoJitter{Base: 100 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("storage write retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("storage write retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}
