// Package binance fetches klines from the Binance public REST API and
// streams closed klines over the public websocket.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"signalbot/internal/model"
)

// DefaultRESTURL is the production spot REST endpoint.
const DefaultRESTURL = "https://api.binance.com"

// maxKlineLimit is the largest page /api/v3/klines accepts.
const maxKlineLimit = 1000

// Client wraps REST access to the public kline endpoint.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a REST client allowing ratePerSec requests per second
// (burst of the same size). A non-positive rate disables limiting.
func NewClient(baseURL string, ratePerSec float64, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		burst := int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		limiter:    lim,
	}
}

// FetchHistory returns up to count of the most recent klines for pair,
// oldest first. Rows Binance sends with fewer than six fields are skipped;
// value validation is left to the window.
func (c *Client) FetchHistory(ctx context.Context, pair, interval string, count int) ([]model.Candle, error) {
	if count <= 0 || count > maxKlineLimit {
		return nil, fmt.Errorf("binance klines: limit %d out of range [1,%d]", count, maxKlineLimit)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("binance klines: rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(pair))
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(count))

	u := fmt.Sprintf("%s/api/v3/klines?%s", c.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", pair, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		json.NewDecoder(res.Body).Decode(&apiErr)
		return nil, fmt.Errorf("binance klines %s: status %d: %s", pair, res.StatusCode, apiErr.Msg)
	}

	var raw [][]any
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("binance klines %s: decode: %w", pair, err)
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, item := range raw {
		// Binance returns 12 fields per kline; only the first six are used.
		if len(item) < 6 {
			continue
		}
		candles = append(candles, model.Candle{
			Pair:     strings.ToUpper(pair),
			OpenTime: time.UnixMilli(toInt64(item[0])).UTC(),
			Open:     toFloat(item[1]),
			High:     toFloat(item[2]),
			Low:      toFloat(item[3]),
			Close:    toFloat(item[4]),
			Volume:   toFloat(item[5]),
		})
	}
	return candles, nil
}

// toFloat parses Binance's string-encoded decimals. Unparseable input
// yields NaN so the window rejects the candle instead of storing a zero.
func toFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nan()
		}
		return f
	case float64:
		return t
	default:
		return nan()
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
