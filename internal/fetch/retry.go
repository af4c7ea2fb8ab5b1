package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tradescanner/logger"
)

// Retrier runs an operation up to a fixed number of attempts with a flat
// delay between them. There is no exponential growth and no jitter.
type Retrier struct {
	attempts int
	delay    time.Duration
	log      *logger.Log
}

// NewRetrier returns a Retrier. attempts below 1 are treated as 1.
func NewRetrier(attempts int, delay time.Duration, log *logger.Log) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{attempts: attempts, delay: delay, log: log}
}

func (r *Retrier) policy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), uint64(r.attempts-1)),
		ctx,
	)
}

// Do calls op until it succeeds or the attempts are exhausted. The final
// failure is returned as a *RequestFailure naming endpoint.
func (r *Retrier) Do(ctx context.Context, endpoint string, op func(ctx context.Context) error) error {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		return op(ctx)
	}, r.policy(ctx), func(err error, wait time.Duration) {
		r.log.WithComponent("fetch").WithFields(logger.Fields{
			"endpoint": endpoint,
			"attempt":  attempts,
			"wait_ms":  wait.Milliseconds(),
		}).WithError(err).Debug("request failed, retrying")
	})
	if err == nil {
		return nil
	}

	var failure *RequestFailure
	if errors.As(err, &failure) {
		return failure
	}
	return newRequestFailure(endpoint, attempts, err)
}
