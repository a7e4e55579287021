package models

import "time"

// Position is one priced holding in a Portfolio. Live fields are nil when
// the symbol could not be priced; Error then names the reason.
type Position struct {
	Symbol        string   `json:"symbol"`
	Quantity      int64    `json:"quantity"`
	AvgCost       float64  `json:"avgCost"`
	LivePrice     *float64 `json:"livePrice"`
	MarketValue   *float64 `json:"marketValue"`
	UnrealizedPnl *float64 `json:"unrealizedPnl"`
	Error         string   `json:"error,omitempty"`
}

// Portfolio is the valuation of a user's open positions. Totals cover priced
// positions only; PricedFraction is priced/total (1 when there are none).
// AsOf is the oldest contributing quote time, nil when nothing was priced.
type Portfolio struct {
	Positions      []Position `json:"positions"`
	TotalValue     float64    `json:"totalValue"`
	TotalCost      float64    `json:"totalCost"`
	TotalPnl       float64    `json:"totalPnl"`
	PricedFraction float64    `json:"pricedFraction"`
	AsOf           *time.Time `json:"asOf"`
}

// Partial reports whether some positions are missing a live price.
func (p *Portfolio) Partial() bool {
	for _, pos := range p.Positions {
		if pos.LivePrice == nil {
			return true
		}
	}
	return false
}
