package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxBody caps how much of an upstream response is read.
const maxBody = 1 << 20

// statusClassifier maps a non-200 HTTP status to an Outcome.
type statusClassifier func(status int) Outcome

// getJSON performs a GET and decodes a 200 response into data. Every error it
// returns is an *Error carrying the outcome.
func getJSON(ctx context.Context, client *http.Client, provider, addr string, classify statusClassifier, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return &Error{Provider: provider, Outcome: OutcomeFatal, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &Error{Provider: provider, Outcome: OutcomeTransient, Err: redact(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return &Error{
			Provider:   provider,
			Outcome:    classify(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("GET %s%s: %s", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status),
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(data); err != nil {
		return &Error{Provider: provider, Outcome: OutcomeTransient, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// redact strips the request URL, which carries the API key, from transport
// errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

// defaultClassify is the table shared by the adapters for statuses they do
// not treat specially.
func defaultClassify(status int) Outcome {
	switch {
	case status == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return OutcomeFatal
	case status >= 500:
		return OutcomeTransient
	default:
		return OutcomeFatal
	}
}
