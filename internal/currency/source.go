// Package currency resolves USD/CAD amounts through a cached exchange rate.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

const DefaultFetchTimeout = 5 * time.Second

// RateSource returns the current USD→CAD rate. Implementations are treated as
// unreliable.
type RateSource interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

// HTTPRateSource reads the rate from a JSON endpoint shaped like
// {"rates": {"CAD": 1.3521}}.
type HTTPRateSource struct {
	url    string
	client *http.Client
}

func NewHTTPRateSource(url string, timeout time.Duration) *HTTPRateSource {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPRateSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type ratesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (s *HTTPRateSource) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: build request: %v", core.ErrExchangeRateFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", core.ErrExchangeRateFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("%w: unexpected status %d", core.ErrExchangeRateFetch, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode response: %v", core.ErrExchangeRateFetch, err)
	}

	rate, ok := body.Rates[core.CurrencyCAD]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: response has no %s rate", core.ErrExchangeRateFetch, core.CurrencyCAD)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate %s", core.ErrExchangeRateFetch, rate)
	}
	return rate, nil
}
