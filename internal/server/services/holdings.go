package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/moneo/internal/server/symbols"
	"github.com/google/uuid"
)

// TradeInput is a transaction request as decoded from the client.
type TradeInput struct {
	Symbol   string
	Quantity int64
	// Price may be nil when the server re-fetches it.
	Price *float64
	Side  models.Side
}

// HoldingsOptions are the trade policies.
type HoldingsOptions struct {
	// AllowShortSell lets a SELL take the position below zero.
	AllowShortSell bool
	// RefetchPrice replaces the client price with a live quote.
	RefetchPrice bool
}

// HoldingsService records and deletes transactions.
type HoldingsService struct {
	repos  repomanager.RepositoryManager
	quotes QuoteSource
	opts   HoldingsOptions
	now    func() time.Time
}

func NewHoldingsService(repos repomanager.RepositoryManager, quotes QuoteSource, opts HoldingsOptions) *HoldingsService {
	return &HoldingsService{repos: repos, quotes: quotes, opts: opts, now: time.Now}
}

// Create validates and stores a trade. A SELL larger than the current
// position is refused with common.ErrInsufficientPosition unless short
// selling is enabled.
func (s *HoldingsService) Create(ctx context.Context, userID string, in TradeInput) (*models.Transaction, error) {
	symbol, err := symbols.Normalize(in.Symbol)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, common.Validationf("quantity must be a positive integer")
	}
	side := in.Side
	if side == "" {
		side = models.SideBuy
	}
	if !side.Valid() {
		return nil, common.Validationf("side must be BUY or SELL")
	}

	price, err := s.tradePrice(ctx, symbol, in.Price)
	if err != nil {
		return nil, err
	}

	t := &models.Transaction{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Symbol:             symbol,
		Quantity:           in.Quantity,
		PriceAtTransaction: price,
		Side:               side,
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if err := r.Transactions().LockUser(ctx, userID); err != nil {
			return err
		}
		// stamped under the lock so stored order matches approval order
		t.Timestamp = s.now().UTC()
		if side == models.SideSell && !s.opts.AllowShortSell {
			pos, err := r.Transactions().Position(ctx, userID, symbol)
			if err != nil {
				return err
			}
			if pos < in.Quantity {
				return fmt.Errorf("%w: holding %d %s, selling %d", common.ErrInsufficientPosition, pos, symbol, in.Quantity)
			}
		}
		return r.Transactions().Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *HoldingsService) tradePrice(ctx context.Context, symbol string, client *float64) (float64, error) {
	if s.opts.RefetchPrice {
		q, err := s.quotes.Get(ctx, symbol)
		if err != nil {
			return 0, err
		}
		return q.LastPrice, nil
	}
	if client == nil {
		return 0, common.Validationf("priceAtPurchase is required")
	}
	p := *client
	if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, common.Validationf("priceAtPurchase must be a non-negative number")
	}
	return p, nil
}

// List returns the user's transactions in timestamp order.
func (s *HoldingsService) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	txs, err := s.repos.Transactions().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// Delete removes a transaction owned by userID. A missing id reports
// common.ErrNotFound and someone else's transaction common.ErrForbidden.
func (s *HoldingsService) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrNotFound
	}
	return s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		t, err := r.Transactions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return common.ErrForbidden
		}
		if err := r.Transactions().LockUser(ctx, userID); err != nil {
			return err
		}
		return r.Transactions().Delete(ctx, id)
	})
}
