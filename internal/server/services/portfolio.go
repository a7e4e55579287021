package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/logging"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultFanOut is the number of concurrent quote lookups per valuation.
const DefaultFanOut = 8

// Position error tags reported when a symbol cannot be priced.
const (
	TagSymbolUnknown    = "symbol_unknown"
	TagQuoteUnavailable = "quote_unavailable"
	TagOverCapacity     = "over_capacity"
	TagTimeout          = "timeout"
	TagInternal         = "internal"
)

// PortfolioService values a user's open positions against live quotes.
type PortfolioService struct {
	repos  repomanager.Repositories
	quotes QuoteSource
	fanOut int
	logger logging.Logger
}

func NewPortfolioService(repos repomanager.Repositories, quotes QuoteSource, fanOut int, logger logging.Logger) *PortfolioService {
	if fanOut < 1 {
		fanOut = DefaultFanOut
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &PortfolioService{repos: repos, quotes: quotes, fanOut: fanOut, logger: logger}
}

// holding is a folded position before pricing.
type holding struct {
	symbol   string
	quantity int64
	avgCost  decimal.Decimal
}

// foldPositions derives open positions from transactions in timestamp order
// using the running-average cost method. Trades that grow a position move
// the average; trades that shrink it leave the average alone; a trade that
// crosses zero opens the remainder at its own price. Closed positions are
// dropped. The result is sorted by symbol.
func foldPositions(txs []models.Transaction) []holding {
	bySymbol := make(map[string]*holding)
	for _, t := range txs {
		h, ok := bySymbol[t.Symbol]
		if !ok {
			h = &holding{symbol: t.Symbol, avgCost: decimal.Zero}
			bySymbol[t.Symbol] = h
		}

		delta := t.Quantity
		if t.Side == models.SideSell {
			delta = -delta
		}
		price := decimal.NewFromFloat(t.PriceAtTransaction)
		before := h.quantity
		after := before + delta

		switch {
		case after == 0:
			h.avgCost = decimal.Zero
		case before == 0 || sameSign(before, delta):
			// growing: weighted average over absolute quantities
			oldAbs := decimal.NewFromInt(abs(before))
			addAbs := decimal.NewFromInt(abs(delta))
			h.avgCost = h.avgCost.Mul(oldAbs).Add(price.Mul(addAbs)).Div(oldAbs.Add(addAbs))
		case !sameSign(before, after):
			h.avgCost = price
		}
		h.quantity = after
	}

	out := make([]holding, 0, len(bySymbol))
	for _, h := range bySymbol {
		if h.quantity != 0 {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].symbol < out[j].symbol })
	return out
}

func sameSign(a, b int64) bool {
	return (a > 0) == (b > 0)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Value loads the user's transactions in one query, prices every open
// position with at most fanOut lookups in flight, and aggregates totals over
// the priced positions. A failed lookup leaves that position unpriced with
// an error tag; only the request deadline fails the whole valuation.
func (s *PortfolioService) Value(ctx context.Context, userID string) (*models.Portfolio, error) {
	txs, err := s.repos.Transactions().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings := foldPositions(txs)

	quotes := make([]*models.Quote, len(holdings))
	errs := make([]error, len(holdings))

	var g errgroup.Group
	g.SetLimit(s.fanOut)
	for i, h := range holdings {
		g.Go(func() error {
			quotes[i], errs[i] = s.quotes.Get(ctx, h.symbol)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRequestTimeout, err)
	}

	p := &models.Portfolio{Positions: make([]models.Position, 0, len(holdings))}
	totalValue, totalCost := decimal.Zero, decimal.Zero
	priced := 0

	for i, h := range holdings {
		pos := models.Position{
			Symbol:   h.symbol,
			Quantity: h.quantity,
			AvgCost:  h.avgCost.InexactFloat64(),
		}
		q := quotes[i]
		if errs[i] != nil || q == nil {
			pos.Error = errorTag(errs[i])
			if pos.Error == TagInternal {
				s.logger.Error(ctx, "portfolio quote failed", "symbol", h.symbol, "error", errs[i])
			}
			p.Positions = append(p.Positions, pos)
			continue
		}

		qty := decimal.NewFromInt(h.quantity)
		live := decimal.NewFromFloat(q.LastPrice)
		value := qty.Mul(live)
		cost := qty.Mul(h.avgCost)

		pos.LivePrice = floatPtr(live)
		pos.MarketValue = floatPtr(value)
		pos.UnrealizedPnl = floatPtr(value.Sub(cost))
		p.Positions = append(p.Positions, pos)

		totalValue = totalValue.Add(value)
		totalCost = totalCost.Add(cost)
		priced++
		if p.AsOf == nil || q.FetchedAt.Before(*p.AsOf) {
			asOf := q.FetchedAt
			p.AsOf = &asOf
		}
	}

	p.TotalValue = totalValue.InexactFloat64()
	p.TotalCost = totalCost.InexactFloat64()
	p.TotalPnl = totalValue.Sub(totalCost).InexactFloat64()
	p.PricedFraction = 1
	if len(holdings) > 0 {
		p.PricedFraction = float64(priced) / float64(len(holdings))
	}
	return p, nil
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}

func errorTag(err error) string {
	switch {
	case errors.Is(err, common.ErrSymbolUnknown):
		return TagSymbolUnknown
	case errors.Is(err, common.ErrQuoteUnavailable):
		return TagQuoteUnavailable
	case errors.Is(err, common.ErrOverCapacity):
		return TagOverCapacity
	case errors.Is(err, common.ErrRequestTimeout), errors.Is(err, context.DeadlineExceeded):
		return TagTimeout
	default:
		return TagInternal
	}
}
