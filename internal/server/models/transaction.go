package models

import "time"

// Side is the direction of a transaction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Transaction is an immutable simulated trade. Symbol is canonical.
type Transaction struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Symbol             string    `json:"symbol"`
	Quantity           int64     `json:"quantity"`
	PriceAtTransaction float64   `json:"priceAtTransaction"`
	Side               Side      `json:"side"`
	Timestamp          time.Time `json:"timestamp"`
}
