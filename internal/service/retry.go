package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// RetryPolicy bounds how often an operation that failed with
// models.ErrTransient is run again. Attempt n waits n*Backoff before running.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy is used when no policy is configured
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 50 * time.Millisecond}

func (p RetryPolicy) do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, models.ErrTransient) || attempt >= attempts {
			return err
		}

		util.TxRetriesTotal.WithLabelValues(op).Inc()
		util.GetLogger().Warn("Retrying after transient failure",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * p.Backoff):
		}
	}
}
