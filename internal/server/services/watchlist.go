package services

import (
	"context"

	"github.com/dmitrijs2005/moneo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/moneo/internal/server/symbols"
)

// WatchlistService maintains the per-user symbol set.
type WatchlistService struct {
	repos repomanager.Repositories
}

func NewWatchlistService(repos repomanager.Repositories) *WatchlistService {
	return &WatchlistService{repos: repos}
}

// Add inserts the normalized symbol and returns the resulting set.
func (s *WatchlistService) Add(ctx context.Context, userID, symbol string) ([]string, error) {
	sym, err := symbols.Normalize(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Watchlists().Add(ctx, userID, sym); err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

// Remove deletes the symbol if present and returns the resulting set.
func (s *WatchlistService) Remove(ctx context.Context, userID, symbol string) ([]string, error) {
	sym, err := symbols.Normalize(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Watchlists().Remove(ctx, userID, sym); err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

func (s *WatchlistService) List(ctx context.Context, userID string) ([]string, error) {
	syms, err := s.repos.Watchlists().List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if syms == nil {
		syms = []string{}
	}
	return syms, nil
}
