package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/logging"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(sym string, side models.Side, qty int64, px float64) models.Transaction {
	return models.Transaction{Symbol: sym, Side: side, Quantity: qty, PriceAtTransaction: px}
}

func TestFoldPositions(t *testing.T) {
	tests := []struct {
		name     string
		txs      []models.Transaction
		wantQty  map[string]int64
		wantCost map[string]float64
	}{
		{
			name: "running average ignores sells",
			txs: []models.Transaction{
				trade("AAPL", models.SideBuy, 10, 100),
				trade("AAPL", models.SideBuy, 5, 120),
				trade("AAPL", models.SideSell, 4, 130),
			},
			wantQty:  map[string]int64{"AAPL": 11},
			wantCost: map[string]float64{"AAPL": 1600.0 / 15},
		},
		{
			name: "closed position dropped",
			txs: []models.Transaction{
				trade("AAPL", models.SideBuy, 3, 100),
				trade("AAPL", models.SideSell, 3, 90),
				trade("MSFT", models.SideBuy, 1, 300),
			},
			wantQty:  map[string]int64{"MSFT": 1},
			wantCost: map[string]float64{"MSFT": 300},
		},
		{
			name: "reopened after close starts fresh",
			txs: []models.Transaction{
				trade("AAPL", models.SideBuy, 3, 100),
				trade("AAPL", models.SideSell, 3, 90),
				trade("AAPL", models.SideBuy, 2, 50),
			},
			wantQty:  map[string]int64{"AAPL": 2},
			wantCost: map[string]float64{"AAPL": 50},
		},
		{
			name: "short then cover past zero",
			txs: []models.Transaction{
				trade("TSLA", models.SideSell, 4, 200),
				trade("TSLA", models.SideSell, 4, 100),
				trade("TSLA", models.SideBuy, 10, 120),
			},
			wantQty:  map[string]int64{"TSLA": 2},
			wantCost: map[string]float64{"TSLA": 120},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := foldPositions(tt.txs)
			require.Len(t, got, len(tt.wantQty))
			for _, h := range got {
				assert.Equal(t, tt.wantQty[h.symbol], h.quantity, h.symbol)
				assert.InDelta(t, tt.wantCost[h.symbol], h.avgCost.InexactFloat64(), 1e-9, h.symbol)
			}
		})
	}
}

func TestFoldPositions_PositionEqualsBuysMinusSells(t *testing.T) {
	var txs []models.Transaction
	want := map[string]int64{}
	for i := 0; i < 50; i++ {
		sym := fmt.Sprintf("S%d", i%4)
		side := models.SideBuy
		qty := int64(i%7 + 1)
		if i%3 == 0 {
			side = models.SideSell
			want[sym] -= qty
		} else {
			want[sym] += qty
		}
		txs = append(txs, trade(sym, side, qty, float64(i)))
	}

	got := map[string]int64{}
	for _, h := range foldPositions(txs) {
		got[h.symbol] = h.quantity
	}
	for sym, q := range want {
		if q == 0 {
			assert.NotContains(t, got, sym)
			continue
		}
		assert.Equal(t, q, got[sym], sym)
	}
}

func seed(t *testing.T, m repomanager.RepositoryManager, userID string, txs ...models.Transaction) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, tx := range txs {
		tx.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", i)
		tx.UserID = userID
		tx.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, m.Transactions().Create(context.Background(), &tx))
	}
}

func TestValue_RunningAverageScenario(t *testing.T) {
	m := repomanager.NewMemoryRepositoryManager()
	seed(t, m, "u1",
		trade("AAPL", models.SideBuy, 10, 100),
		trade("AAPL", models.SideBuy, 5, 120),
		trade("AAPL", models.SideSell, 4, 130),
	)
	q := newFakeQuotes()
	q.prices["AAPL"] = 150

	p, err := NewPortfolioService(m, q, 8, logging.Nop()).Value(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, p.Positions, 1)

	pos := p.Positions[0]
	assert.Equal(t, "AAPL", pos.Symbol)
	assert.Equal(t, int64(11), pos.Quantity)
	assert.InDelta(t, 106.67, pos.AvgCost, 0.005)
	require.NotNil(t, pos.LivePrice)
	assert.InDelta(t, 150.0, *pos.LivePrice, 1e-9)
	require.NotNil(t, pos.MarketValue)
	assert.InDelta(t, 1650.0, *pos.MarketValue, 1e-9)
	require.NotNil(t, pos.UnrealizedPnl)
	assert.InDelta(t, 476.67, *pos.UnrealizedPnl, 0.005)
	assert.Empty(t, pos.Error)

	assert.InDelta(t, 1650.0, p.TotalValue, 1e-9)
	assert.InDelta(t, 1173.33, p.TotalCost, 0.005)
	assert.InDelta(t, 476.67, p.TotalPnl, 0.005)
	assert.Equal(t, 1.0, p.PricedFraction)
	require.NotNil(t, p.AsOf)
	assert.True(t, p.AsOf.Equal(q.at))
	assert.False(t, p.Partial())
}

func TestValue_AllPricesMissing(t *testing.T) {
	m := repomanager.NewMemoryRepositoryManager()
	seed(t, m, "u1",
		trade("AAPL", models.SideBuy, 1, 100),
		trade("MSFT", models.SideBuy, 2, 200),
		trade("TSLA", models.SideBuy, 3, 300),
	)
	q := newFakeQuotes()
	q.errs["AAPL"] = fmt.Errorf("%w: AAPL", common.ErrQuoteUnavailable)
	q.errs["MSFT"] = fmt.Errorf("%w: MSFT", common.ErrQuoteUnavailable)
	q.errs["TSLA"] = fmt.Errorf("%w: TSLA", common.ErrSymbolUnknown)

	p, err := NewPortfolioService(m, q, 8, nil).Value(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, p.Positions, 3)

	for _, pos := range p.Positions {
		assert.Nil(t, pos.LivePrice, pos.Symbol)
		assert.Nil(t, pos.MarketValue, pos.Symbol)
		assert.Nil(t, pos.UnrealizedPnl, pos.Symbol)
	}
	assert.Equal(t, TagQuoteUnavailable, p.Positions[0].Error)
	assert.Equal(t, TagSymbolUnknown, p.Positions[2].Error)
	assert.Equal(t, 0.0, p.TotalValue)
	assert.Equal(t, 0.0, p.TotalCost)
	assert.Equal(t, 0.0, p.PricedFraction)
	assert.Nil(t, p.AsOf)
	assert.True(t, p.Partial())
}

func TestValue_PartialTotalsAndAsOf(t *testing.T) {
	m := repomanager.NewMemoryRepositoryManager()
	seed(t, m, "u1",
		trade("AAPL", models.SideBuy, 2, 100),
		trade("MSFT", models.SideBuy, 1, 200),
		trade("TSLA", models.SideBuy, 1, 300),
	)
	older := time.Date(2025, 3, 1, 11, 59, 0, 0, time.UTC)
	q := &olderFor{fakeQuotes: newFakeQuotes(), symbol: "MSFT", at: older}
	q.prices["AAPL"] = 110
	q.prices["MSFT"] = 190
	q.errs["TSLA"] = fmt.Errorf("%w: TSLA", common.ErrOverCapacity)

	p, err := NewPortfolioService(m, q, 2, nil).Value(context.Background(), "u1")
	require.NoError(t, err)

	assert.InDelta(t, 410.0, p.TotalValue, 1e-9)
	assert.InDelta(t, 400.0, p.TotalCost, 1e-9)
	assert.InDelta(t, 10.0, p.TotalPnl, 1e-9)
	assert.InDelta(t, 2.0/3.0, p.PricedFraction, 1e-9)
	assert.Equal(t, TagOverCapacity, p.Positions[2].Error)
	require.NotNil(t, p.AsOf)
	assert.True(t, p.AsOf.Equal(older))
}

type olderFor struct {
	*fakeQuotes
	symbol string
	at     time.Time
}

func (o *olderFor) Get(ctx context.Context, symbol string) (*models.Quote, error) {
	q, err := o.fakeQuotes.Get(ctx, symbol)
	if err == nil && symbol == o.symbol {
		q.FetchedAt = o.at
	}
	return q, err
}

func TestValue_EmptyPortfolio(t *testing.T) {
	p, err := NewPortfolioService(repomanager.NewMemoryRepositoryManager(), newFakeQuotes(), 8, nil).
		Value(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Positions)
	assert.NotNil(t, p.Positions)
	assert.Equal(t, 1.0, p.PricedFraction)
	assert.Nil(t, p.AsOf)
}

func TestValue_FanOutIsBounded(t *testing.T) {
	m := repomanager.NewMemoryRepositoryManager()
	q := newFakeQuotes()
	q.delay = 10 * time.Millisecond
	var txs []models.Transaction
	for i := 0; i < 20; i++ {
		sym := fmt.Sprintf("S%02d", i)
		q.prices[sym] = 1
		txs = append(txs, trade(sym, models.SideBuy, 1, 1))
	}
	seed(t, m, "u1", txs...)

	p, err := NewPortfolioService(m, q, 3, nil).Value(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, p.Positions, 20)
	assert.LessOrEqual(t, q.maxActive, 3)
	assert.Equal(t, 1.0, p.PricedFraction)
}

func TestValue_DeadlineExceeded(t *testing.T) {
	m := repomanager.NewMemoryRepositoryManager()
	seed(t, m, "u1", trade("AAPL", models.SideBuy, 1, 1))
	q := newFakeQuotes()
	q.prices["AAPL"] = 1
	q.delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewPortfolioService(m, q, 8, nil).Value(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrRequestTimeout)
}

func TestErrorTag(t *testing.T) {
	assert.Equal(t, TagTimeout, errorTag(context.DeadlineExceeded))
	assert.Equal(t, TagTimeout, errorTag(fmt.Errorf("%w: x", common.ErrRequestTimeout)))
	assert.Equal(t, TagInternal, errorTag(fmt.Errorf("boom")))
}
