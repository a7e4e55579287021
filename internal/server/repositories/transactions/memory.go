package transactions

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/server/models"
)

// MemoryRepository keeps transactions in process memory. LockUser is a no-op;
// the in-memory manager serializes write transactions itself.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]models.Transaction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]models.Transaction)}
}

func (r *MemoryRepository) Create(ctx context.Context, t *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = *t
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []models.Transaction{}
	for _, t := range r.byID {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID < result[j].ID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (r *MemoryRepository) Position(ctx context.Context, userID, symbol string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var position int64
	for _, t := range r.byID {
		if t.UserID != userID || t.Symbol != symbol {
			continue
		}
		if t.Side == models.SideSell {
			position -= t.Quantity
		} else {
			position += t.Quantity
		}
	}
	return position, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) LockUser(ctx context.Context, userID string) error {
	return nil
}
