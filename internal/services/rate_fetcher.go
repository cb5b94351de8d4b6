// internal/services/rate_fetcher.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

var ErrRatesAPI = errors.New("exchange rates api error")

// RateFetcher retrieves current rates for symbols quoted against base.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string, symbols []string) (map[string]decimal.Decimal, error)
	Source() string
}

// HTTPRateFetcher talks to an exchangerate.host style endpoint:
// GET <url>?base=USD&symbols=EUR,GBP -> {"base":"USD","rates":{"EUR":0.92,...}}
type HTTPRateFetcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPRateFetcher(endpoint, apiKey string, timeout time.Duration) *HTTPRateFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRateFetcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (f *HTTPRateFetcher) Source() string {
	if u, err := url.Parse(f.endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return "rates-api"
}

func (f *HTTPRateFetcher) FetchRates(ctx context.Context, base string, symbols []string) (map[string]decimal.Decimal, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid rates api url: %w", err)
	}
	q := u.Query()
	q.Set("base", base)
	q.Set("symbols", strings.Join(symbols, ","))
	if f.apiKey != "" {
		q.Set("access_key", f.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesAPI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRatesAPI, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRatesAPI, resp.StatusCode)
	}

	return parseRatesResponse(body, symbols)
}

func parseRatesResponse(body []byte, symbols []string) (map[string]decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrRatesAPI)
	}

	doc := gjson.ParseBytes(body)
	if success := doc.Get("success"); success.Exists() && !success.Bool() {
		return nil, fmt.Errorf("%w: %s", ErrRatesAPI, doc.Get("error.info").String())
	}

	rates := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		value := doc.Get("rates." + symbol)
		if !value.Exists() {
			logrus.WithField("currency", symbol).Warn("Rates API response missing currency")
			continue
		}
		rate, err := decimal.NewFromString(value.Raw)
		if err != nil || !rate.IsPositive() {
			logrus.WithField("currency", symbol).WithField("raw", value.Raw).Warn("Rates API returned unusable rate")
			continue
		}
		rates[symbol] = rate
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: no usable rates in response", ErrRatesAPI)
	}
	return rates, nil
}
