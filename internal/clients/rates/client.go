// Package rates implements the exchange-rate provider client against an
// open-exchange-rates style HTTP API: GET <base-url>?base=USD returning a JSON
// body with a rates object of target-currency multipliers.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
)

// Client fetches rate tables over HTTP. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a rate provider client for the given endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ portssvc.RateProvider = (*Client)(nil)

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRates retrieves the rate table for one base currency. Any transport
// error, non-success status or malformed body is reported as
// apperrors.ErrRateFetchFailed so the caller's fallback chain can engage.
func (c *Client) FetchRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed provider url: %v", apperrors.ErrRateFetchFailed, err)
	}
	query := endpoint.Query()
	query.Set("base", strings.ToUpper(baseCurrency))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRateFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRateFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", apperrors.ErrRateFetchFailed, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", apperrors.ErrRateFetchFailed, err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%w: response carried no rates", apperrors.ErrRateFetchFailed)
	}

	rates := make(map[string]decimal.Decimal, len(body.Rates))
	for code, rate := range body.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}
