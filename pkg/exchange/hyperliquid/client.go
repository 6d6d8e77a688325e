package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"bundlekit/pkg/catalog"
	"bundlekit/pkg/exchange"
)

const (
	defaultBaseURL          = "https://api.hyperliquid.xyz/info"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond

	// Hyperliquid caps candleSnapshot responses at 5000 candles.
	defaultCandleLimit = 5000
)

var intervalDurations = map[string]time.Duration{
	"1m": time.Minute,
	"1d": 24 * time.Hour,
}

// Client fetches historical candles from the Hyperliquid info endpoint.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	candleLimit int
	requests    atomic.Int64
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default info endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithCandleLimit overrides the advertised per-request candle cap.
func WithCandleLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.candleLimit = limit
		}
	}
}

// NewClient constructs a Hyperliquid candle client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries:  defaultMaxRetries,
		candleLimit: defaultCandleLimit,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CandleLimit implements exchange.Client.
func (c *Client) CandleLimit() int { return c.candleLimit }

// RequestCount implements exchange.Client.
func (c *Client) RequestCount() int64 { return c.requests.Load() }

// FetchCandles implements exchange.Client. One upstream request is issued
// per asset; missing periods simply have no entry in the result.
func (c *Client) FetchCandles(ctx context.Context, assets []catalog.Asset, interval string, end time.Time, barCount int) (map[int64][]exchange.Candle, error) {
	period, ok := intervalDurations[interval]
	if !ok {
		return nil, fmt.Errorf("hyperliquid: unsupported interval %q", interval)
	}
	if barCount <= 0 {
		return nil, fmt.Errorf("hyperliquid: bar count must be positive")
	}
	if barCount > c.candleLimit {
		return nil, fmt.Errorf("hyperliquid: bar count %d exceeds limit %d", barCount, c.candleLimit)
	}

	end = end.UTC()
	start := end.Add(-period * time.Duration(barCount-1))

	result := make(map[int64][]exchange.Candle, len(assets))
	for _, asset := range assets {
		candles, err := c.candleSnapshot(ctx, asset.Symbol, interval, start, end)
		if err != nil {
			return nil, fmt.Errorf("hyperliquid: %s: %w", asset.Symbol, err)
		}
		result[asset.SID] = candles
	}
	return result, nil
}

func (c *Client) candleSnapshot(ctx context.Context, symbol, interval string, start, end time.Time) ([]exchange.Candle, error) {
	var response CandleResponse
	request := InfoRequest{
		Type: "candleSnapshot",
		Req: CandleSnapshotRequest{
			Coin:      strings.ToUpper(strings.TrimSpace(symbol)),
			Interval:  interval,
			StartTime: start.UnixMilli(),
			EndTime:   end.UnixMilli(),
		},
	}
	if err := c.doRequest(ctx, request, &response); err != nil {
		return nil, err
	}

	candles := make([]exchange.Candle, 0, len(response))
	for _, item := range response {
		opened := time.UnixMilli(item.T).UTC()
		if opened.Before(start) || opened.After(end) {
			continue
		}
		candles = append(candles, exchange.Candle{
			LastTraded: opened,
			Open:       item.O,
			High:       item.H,
			Low:        item.L,
			Close:      item.C,
			Volume:     item.V,
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].LastTraded.Before(candles[j].LastTraded)
	})
	return candles, nil
}

// doRequest posts an InfoRequest and decodes the response into result.
func (c *Client) doRequest(ctx context.Context, req InfoRequest, result interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		c.requests.Add(1)
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("read response: %w", readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
			} else {
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("decode response: %w", err)
					}
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
			continue
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("request failed without error detail")
}
