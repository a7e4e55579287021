package quotes

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/quotes/providers"
	"golang.org/x/time/rate"
)

// Upstream is a provider together with its token bucket.
type Upstream struct {
	Provider providers.Provider
	Limiter  *rate.Limiter
}

// NewUpstream builds an Upstream whose bucket holds burst tokens and refills
// at perSecond tokens per second. A non-positive perSecond never refills.
func NewUpstream(p providers.Provider, perSecond float64, burst int) Upstream {
	limit := rate.Limit(perSecond)
	if perSecond < 0 {
		limit = 0
	}
	return Upstream{Provider: p, Limiter: rate.NewLimiter(limit, burst)}
}

// upstream is the service's per-provider state.
type upstream struct {
	provider providers.Provider
	limiter  *rate.Limiter
	cool     coolOff
}

// acquire takes one token, waiting for it unless noWait is set. A bucket that
// cannot admit a token before ctx ends reports rateLimited.
func (u *upstream) acquire(ctx context.Context, noWait bool) error {
	if u.limiter == nil {
		return nil
	}
	if noWait {
		if u.limiter.Allow() {
			return nil
		}
		return &providers.Error{Provider: u.provider.Name(), Outcome: providers.OutcomeRateLimited, Err: errBucketEmpty}
	}
	if err := u.limiter.Wait(ctx); err != nil {
		return &providers.Error{Provider: u.provider.Name(), Outcome: providers.OutcomeRateLimited, Err: err}
	}
	return nil
}

func (u *upstream) call(ctx context.Context, symbol string, timeout time.Duration) (*models.Quote, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return u.provider.Quote(ctx, symbol)
}

// coolOff keeps a provider out of rotation after a fatal answer.
type coolOff struct {
	mu    sync.Mutex
	until time.Time
}

func (c *coolOff) open(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Before(c.until)
}

func (c *coolOff) trip(now time.Time, d time.Duration) {
	c.mu.Lock()
	c.until = now.Add(d)
	c.mu.Unlock()
}

func (c *coolOff) reset() {
	c.mu.Lock()
	c.until = time.Time{}
	c.mu.Unlock()
}
