package fetch

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a flat minimum gap between consecutive requests issued by a
// single sequential loop. The first Wait returns immediately.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a Pacer allowing one request per delay. A non-positive
// delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
