package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/moneo/internal/server/auth"
)

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
	calls  map[string]int
	at     time.Time
	delay  time.Duration

	active, maxActive int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		prices: map[string]float64{},
		errs:   map[string]error{},
		calls:  map[string]int{},
		at:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeQuotes) Get(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	f.calls[symbol]++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	delay := f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return &models.Quote{Symbol: symbol, LastPrice: p, FetchedAt: f.at, Source: "fake"}, nil
}

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return issuer
}

func newHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost)
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
