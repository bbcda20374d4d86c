// ABOUTME: Token-bucket gate for outbound mutating platform calls.
// ABOUTME: Constructed once in main and injected; never a package global.

package limiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate serializes mutating platform calls so that no more than one is
// issued per configured interval, regardless of which engine makes the
// call. A single Gate is shared by all callers of the platform adapter.
type Gate struct {
	lim *rate.Limiter
}

// New creates a gate allowing one call per minInterval. A non-positive
// interval disables pacing (useful in tests).
func New(minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		return &Gate{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{lim: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	return g.lim.Wait(ctx)
}
