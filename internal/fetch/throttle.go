package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostThrottle enforces a minimum interval between requests to the same
// host. State is process-local: separate worker processes do not coordinate,
// which is acceptable for small fleets.
type hostThrottle struct {
	mu       sync.Mutex
	interval rate.Limit
	limiters map[string]*rate.Limiter
}

func newHostThrottle(interval time.Duration) *hostThrottle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &hostThrottle{
		interval: limit,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host's politeness interval has elapsed or ctx is
// cancelled. The first request to a host proceeds immediately.
func (t *hostThrottle) Wait(ctx context.Context, host string) error {
	if t.interval == rate.Inf || host == "" {
		return nil
	}

	t.mu.Lock()
	limiter, ok := t.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(t.interval, 1)
		t.limiters[host] = limiter
	}
	t.mu.Unlock()

	return limiter.Wait(ctx)
}
