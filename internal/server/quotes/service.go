// Package quotes serves fresh quotes to the rest of the server. It owns the
// in-process cache, coalesces concurrent requests for a symbol into one
// upstream fetch, and applies rate limiting, retry, fallback and cool-off
// uniformly across providers.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/logging"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/quotes/providers"
	"golang.org/x/sync/singleflight"
)

var (
	errBucketEmpty = errors.New("token bucket empty")
	errNoProvider  = errors.New("no provider available")
)

// Options tunes the service. Non-positive durations and limits are replaced
// by DefaultOptions. MaxRetries is taken as given: 0 disables retries and a
// negative value is treated as 0.
type Options struct {
	TTL             time.Duration
	UpstreamTimeout time.Duration
	// FetchTimeout bounds a whole fetch, retries included.
	FetchTimeout time.Duration
	CoolOff      time.Duration
	RetryBackoff time.Duration
	MaxRetries   int
	MaxInflight  int
}

func DefaultOptions() Options {
	return Options{
		TTL:             30 * time.Second,
		UpstreamTimeout: 5 * time.Second,
		FetchTimeout:    15 * time.Second,
		CoolOff:         time.Minute,
		RetryBackoff:    250 * time.Millisecond,
		MaxRetries:      2,
		MaxInflight:     10000,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = d.TTL
	}
	if o.UpstreamTimeout <= 0 {
		o.UpstreamTimeout = d.UpstreamTimeout
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.CoolOff <= 0 {
		o.CoolOff = d.CoolOff
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = d.RetryBackoff
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.MaxInflight <= 0 {
		o.MaxInflight = d.MaxInflight
	}
	return o
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now for cache expiry and cool-off.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSleep replaces the backoff sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithJitter replaces the backoff jitter; it receives the nominal delay.
func WithJitter(jitter func(d time.Duration) time.Duration) Option {
	return func(s *Service) { s.jitter = jitter }
}

// WithSharedCache adds a second-level cache consulted before the providers.
func WithSharedCache(c SharedCache) Option {
	return func(s *Service) { s.shared = c }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

type entry struct {
	quote     *models.Quote
	expiresAt time.Time
}

// Service is safe for concurrent use. The mutex covers the cache and the
// inflight set only and is never held across upstream I/O.
type Service struct {
	opts      Options
	upstreams []*upstream

	mu       sync.Mutex
	cache    map[string]entry
	inflight map[string]struct{}
	group    singleflight.Group

	// fetches run on base so they outlive the request that started them.
	base   context.Context
	cancel context.CancelFunc

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(d time.Duration) time.Duration
	shared SharedCache
	logger logging.Logger
}

// NewService builds a service over ups, tried in the given order.
func NewService(opts Options, ups []Upstream, options ...Option) *Service {
	base, cancel := context.WithCancel(context.Background())
	s := &Service{
		opts:     opts.withDefaults(),
		cache:    make(map[string]entry),
		inflight: make(map[string]struct{}),
		base:     base,
		cancel:   cancel,
		now:      time.Now,
		sleep:    sleepContext,
		jitter:   halfJitter,
		logger:   logging.Nop(),
	}
	for _, u := range ups {
		s.upstreams = append(s.upstreams, &upstream{provider: u.Provider, limiter: u.Limiter})
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Get returns a quote for the canonical symbol that is younger than the TTL.
//
// Concurrent callers for the same symbol share one fetch and receive the same
// *models.Quote or the same error. A caller whose ctx ends stops waiting; the
// fetch carries on and fills the cache for everyone else. Callers marked with
// WithNoWait share a separate fetch, so a waiting caller never inherits a
// fail-fast rate-limit error.
func (s *Service) Get(ctx context.Context, symbol string) (*models.Quote, error) {
	s.mu.Lock()
	if e, ok := s.cache[symbol]; ok {
		if s.now().Before(e.expiresAt) {
			s.mu.Unlock()
			return e.quote, nil
		}
		delete(s.cache, symbol)
	}
	noWait := noWaitFrom(ctx)
	key := flightKey(symbol, noWait)
	if _, ok := s.inflight[key]; !ok {
		if len(s.inflight) >= s.opts.MaxInflight {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %d symbols in flight", common.ErrOverCapacity, s.opts.MaxInflight)
		}
		s.inflight[key] = struct{}{}
	}
	ch := s.group.DoChan(key, func() (any, error) {
		return s.fetch(key, symbol, noWait)
	})
	s.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Quote), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", common.ErrRequestTimeout, ctx.Err())
	}
}

// flightKey separates fail-fast fetches from waiting ones. Canonical symbols
// never contain '?'.
func flightKey(symbol string, noWait bool) string {
	if noWait {
		return symbol + "?nowait"
	}
	return symbol
}

// fetch runs once per flight key at a time and always clears the inflight slot.
func (s *Service) fetch(key, symbol string, noWait bool) (q *models.Quote, err error) {
	ctx, cancel := context.WithTimeout(s.base, s.opts.FetchTimeout)
	defer cancel()

	var expiresAt time.Time
	defer func() {
		s.mu.Lock()
		if err == nil {
			s.cache[symbol] = entry{quote: q, expiresAt: expiresAt}
		}
		delete(s.inflight, key)
		s.group.Forget(key)
		s.mu.Unlock()
	}()

	if hit, hitExpiry, ok := s.sharedGet(ctx, symbol); ok {
		expiresAt = hitExpiry
		return hit, nil
	}

	q, err = s.fetchUpstream(ctx, symbol, noWait)
	if err != nil {
		s.logger.Warn(ctx, "quote fetch failed", "symbol", symbol, "error", err)
		return nil, err
	}
	expiresAt = s.now().Add(s.opts.TTL)
	s.sharedSet(ctx, symbol, q, expiresAt)
	return q, nil
}

// fetchUpstream walks the providers in order for up to 1+MaxRetries rounds.
// A symbol is unknown only when every provider tried in a round says so. With
// noWait, a round whose only failures are empty buckets ends the fetch at
// once instead of backing off.
func (s *Service) fetchUpstream(ctx context.Context, symbol string, noWait bool) (*models.Quote, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}

		tried, notFound, empty := 0, 0, 0
		for _, u := range s.upstreams {
			if u.cool.open(s.now()) {
				continue
			}
			tried++

			if err := u.acquire(ctx, noWait); err != nil {
				if errors.Is(err, errBucketEmpty) {
					empty++
				}
				lastErr = err
				continue
			}

			q, err := u.call(ctx, symbol, s.opts.UpstreamTimeout)
			switch providers.OutcomeOf(err) {
			case providers.OutcomeOK:
				u.cool.reset()
				q.Symbol = symbol
				return q, nil
			case providers.OutcomeNotFound:
				notFound++
			case providers.OutcomeFatal:
				u.cool.trip(s.now(), s.opts.CoolOff)
				s.logger.Error(ctx, "provider disabled for cool-off",
					"provider", u.provider.Name(), "cool_off", s.opts.CoolOff.String(), "error", err)
			default:
				s.logger.Debug(ctx, "provider attempt failed",
					"provider", u.provider.Name(), "symbol", symbol, "attempt", attempt, "error", err)
			}
			lastErr = err
		}

		if tried == 0 {
			if lastErr == nil {
				lastErr = errNoProvider
			}
			break
		}
		if notFound == tried {
			return nil, fmt.Errorf("%w: %s", common.ErrSymbolUnknown, symbol)
		}
		if noWait && empty > 0 && empty+notFound == tried {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", common.ErrQuoteUnavailable, symbol, lastErr)
}

// backoff returns the jittered delay before retry round attempt (1-based).
func (s *Service) backoff(attempt int) time.Duration {
	d := s.opts.RetryBackoff << (attempt - 1)
	return s.jitter(d)
}

func (s *Service) sharedGet(ctx context.Context, symbol string) (*models.Quote, time.Time, bool) {
	if s.shared == nil {
		return nil, time.Time{}, false
	}
	q, expiresAt, err := s.shared.Get(ctx, symbol)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn(ctx, "shared cache read failed", "symbol", symbol, "error", err)
		}
		return nil, time.Time{}, false
	}
	if !s.now().Before(expiresAt) {
		return nil, time.Time{}, false
	}
	q.Symbol = symbol
	return q, expiresAt, true
}

func (s *Service) sharedSet(ctx context.Context, symbol string, q *models.Quote, expiresAt time.Time) {
	if s.shared == nil {
		return
	}
	if err := s.shared.Set(ctx, symbol, q, expiresAt); err != nil {
		s.logger.Warn(ctx, "shared cache write failed", "symbol", symbol, "error", err)
	}
}

// Stats is a point-in-time view of the service tables.
type Stats struct {
	Cached   int `json:"cached"`
	Inflight int `json:"inflight"`
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Cached: len(s.cache), Inflight: len(s.inflight)}
}

// Close cancels running fetches and drops the cache.
func (s *Service) Close() {
	s.cancel()
	s.mu.Lock()
	s.cache = make(map[string]entry)
	s.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// halfJitter picks a delay uniformly in [d/2, d].
func halfJitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(d-half+1)
}
