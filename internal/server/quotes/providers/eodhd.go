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
	NameEODHD           = "eodhd"
	DefaultEODHDBaseURL = "https://eodhd.com/api"
)

// EODHD reads the real-time endpoint:
//
//	GET {base}/real-time/{SYMBOL}.US?api_token=KEY&fmt=json
//
// Classification:
//
//	200 with numeric close   ok
//	200 with close NA/absent notFound
//	404                      notFound
//	402, 429                 rateLimited (402 is the daily quota)
//	401, 403                 fatal
//	5xx, transport, decode   transient
//	other 4xx                fatal
type EODHD struct {
	key     string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewEODHD(key string, client *http.Client) *EODHD {
	if client == nil {
		client = DefaultClient()
	}
	return &EODHD{key: key, baseURL: DefaultEODHDBaseURL, client: client, now: time.Now}
}

// WithBaseURL points the adapter at another host, e.g. a test server.
func (p *EODHD) WithBaseURL(base string) *EODHD {
	p.baseURL = strings.TrimRight(base, "/")
	return p
}

func (p *EODHD) WithClock(now func() time.Time) *EODHD {
	p.now = now
	return p
}

func (p *EODHD) Name() string {
	return NameEODHD
}

type eodhdRealTime struct {
	Code          string   `json:"code"`
	Timestamp     optFloat `json:"timestamp"`
	Open          optFloat `json:"open"`
	High          optFloat `json:"high"`
	Low           optFloat `json:"low"`
	Close         optFloat `json:"close"`
	PreviousClose optFloat `json:"previousClose"`
}

func (p *EODHD) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	ticker := symbols.FamilyUS.Apply(symbol)
	addr := p.baseURL + "/real-time/" + url.PathEscape(ticker) + "?" + url.Values{
		"api_token": {p.key},
		"fmt":       {"json"},
	}.Encode()

	var body eodhdRealTime
	if err := getJSON(ctx, p.client, NameEODHD, addr, classifyEODHD, &body); err != nil {
		return nil, err
	}
	fetchedAt := p.now()

	if body.Close.V == nil || *body.Close.V < 0 {
		return nil, &Error{Provider: NameEODHD, Outcome: OutcomeNotFound, StatusCode: http.StatusOK, Err: errors.New("no close price for " + ticker)}
	}

	q := &models.Quote{
		Symbol:        symbol,
		LastPrice:     *body.Close.V,
		PreviousClose: body.PreviousClose.V,
		High:          body.High.V,
		Low:           body.Low.V,
		Open:          body.Open.V,
		FetchedAt:     fetchedAt,
		Source:        NameEODHD,
	}
	if strings.HasSuffix(ticker, symbols.USSuffix) {
		q.Currency = "USD"
	}
	return q, nil
}

func classifyEODHD(status int) Outcome {
	switch status {
	case http.StatusNotFound:
		return OutcomeNotFound
	case http.StatusPaymentRequired:
		return OutcomeRateLimited
	}
	return defaultClassify(status)
}
