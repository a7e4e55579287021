package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/symbols"
)

const (
	NameFinnhub           = "finnhub"
	DefaultFinnhubBaseURL = "https://finnhub.io/api/v1"
)

// Finnhub reads the quote endpoint:
//
//	GET {base}/quote?symbol=SYMBOL&token=KEY
//
// Finnhub answers unknown symbols with 200 and an all-zero body.
//
//	200 with c > 0 or t > 0  ok
//	200 with c = 0 and t = 0 notFound
//	429                      rateLimited
//	401, 403                 fatal
//	5xx, transport, decode   transient
//	other 4xx                fatal
type Finnhub struct {
	key     string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewFinnhub(key string, client *http.Client) *Finnhub {
	if client == nil {
		client = DefaultClient()
	}
	return &Finnhub{key: key, baseURL: DefaultFinnhubBaseURL, client: client, now: time.Now}
}

func (p *Finnhub) WithBaseURL(base string) *Finnhub {
	p.baseURL = strings.TrimRight(base, "/")
	return p
}

func (p *Finnhub) WithClock(now func() time.Time) *Finnhub {
	p.now = now
	return p
}

func (p *Finnhub) Name() string {
	return NameFinnhub
}

type finnhubQuote struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Time          int64   `json:"t"`
}

func (p *Finnhub) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	ticker := symbols.FamilyUSBare.Apply(symbol)
	addr := p.baseURL + "/quote?" + url.Values{
		"symbol": {ticker},
		"token":  {p.key},
	}.Encode()

	var body finnhubQuote
	if err := getJSON(ctx, p.client, NameFinnhub, addr, defaultClassify, &body); err != nil {
		return nil, err
	}
	fetchedAt := p.now()

	if body.Current <= 0 && body.Time <= 0 {
		return nil, &Error{Provider: NameFinnhub, Outcome: OutcomeNotFound, StatusCode: http.StatusOK, Err: errors.New("empty quote for " + ticker)}
	}
	if body.Current < 0 {
		return nil, &Error{Provider: NameFinnhub, Outcome: OutcomeTransient, StatusCode: http.StatusOK, Err: errors.New("negative price for " + ticker)}
	}

	return &models.Quote{
		Symbol:        symbol,
		LastPrice:     body.Current,
		PreviousClose: positive(body.PreviousClose),
		High:          positive(body.High),
		Low:           positive(body.Low),
		Open:          positive(body.Open),
		Currency:      "USD",
		FetchedAt:     fetchedAt,
		Source:        NameFinnhub,
	}, nil
}

// positive returns nil for the zeroes Finnhub uses as "no value".
func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
