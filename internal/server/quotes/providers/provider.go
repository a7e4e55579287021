// Package providers contains the upstream market-data adapters. An adapter
// turns one upstream response into a models.Quote and classifies failures
// into an Outcome; it never caches, retries or coalesces.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/moneo/internal/server/models"
)

// Outcome classifies one upstream call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeRateLimited
	OutcomeTransient
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "notFound"
	case OutcomeRateLimited:
		return "rateLimited"
	case OutcomeTransient:
		return "transient"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Provider is an upstream quote source.
type Provider interface {
	Name() string
	// Quote fetches symbol, given in canonical form.
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Error is returned by adapters for every failed call.
type Error struct {
	Provider   string
	Outcome    Outcome
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("provider %s: %s", e.Provider, e.Outcome)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// OutcomeOf classifies err. Errors that did not come from an adapter are
// treated as transient.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Outcome
	}
	return OutcomeTransient
}

// New builds the adapter registered under name.
func New(name, key string, client *http.Client) (Provider, error) {
	switch name {
	case NameEODHD:
		return NewEODHD(key, client), nil
	case NameFinnhub:
		return NewFinnhub(key, client), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// DefaultClient is the outbound client shared by adapters when none is given.
// Per-call deadlines come from the context.
func DefaultClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
