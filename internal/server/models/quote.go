package models

import "time"

// Quote is the provider-agnostic price record. Optional fields are nil when
// the provider did not report them.
type Quote struct {
	Symbol        string    `json:"symbol"`
	LastPrice     float64   `json:"lastPrice"`
	PreviousClose *float64  `json:"previousClose,omitempty"`
	High          *float64  `json:"high,omitempty"`
	Low           *float64  `json:"low,omitempty"`
	Open          *float64  `json:"open,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	FetchedAt     time.Time `json:"fetchedAt"`
	Source        string    `json:"source"`
}
