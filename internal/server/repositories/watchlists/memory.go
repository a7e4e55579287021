package watchlists

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	lists map[string]map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{lists: make(map[string]map[string]struct{})}
}

func (r *MemoryRepository) Add(ctx context.Context, userID, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.lists[userID]
	if !ok {
		set = make(map[string]struct{})
		r.lists[userID] = set
	}
	set[symbol] = struct{}{}
	return nil
}

func (r *MemoryRepository) Remove(ctx context.Context, userID, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lists[userID], symbol)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]string, 0, len(r.lists[userID]))
	for s := range r.lists[userID] {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}
