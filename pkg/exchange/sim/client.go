package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"bundlekit/pkg/catalog"
	"bundlekit/pkg/exchange"
)

const defaultCandleLimit = 500

// Client is an in-memory market data source. Seeded candles are served
// verbatim; unseeded assets get a deterministic synthetic walk so offline
// runs and tests behave reproducibly. Periods can be dropped to mimic
// thin trading.
type Client struct {
	mu       sync.Mutex
	candles  map[int64][]exchange.Candle
	synth    bool
	limit    int
	requests atomic.Int64
}

// Option configures the simulator.
type Option func(*Client)

// WithCandleLimit overrides the advertised per-request cap.
func WithCandleLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithSynthetic toggles deterministic series generation for unseeded assets.
func WithSynthetic(enabled bool) Option {
	return func(c *Client) { c.synth = enabled }
}

// New constructs an empty simulator.
func New(opts ...Option) *Client {
	c := &Client{
		candles: make(map[int64][]exchange.Candle),
		limit:   defaultCandleLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Seed replaces the scripted candle history for a sid. Candles are kept
// sorted by LastTraded.
func (c *Client) Seed(sid int64, candles []exchange.Candle) {
	sorted := make([]exchange.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastTraded.Before(sorted[j].LastTraded)
	})
	c.mu.Lock()
	c.candles[sid] = sorted
	c.mu.Unlock()
}

// CandleLimit implements exchange.Client.
func (c *Client) CandleLimit() int { return c.limit }

// RequestCount implements exchange.Client.
func (c *Client) RequestCount() int64 { return c.requests.Load() }

// FetchCandles implements exchange.Client.
func (c *Client) FetchCandles(_ context.Context, assets []catalog.Asset, interval string, end time.Time, barCount int) (map[int64][]exchange.Candle, error) {
	period, err := intervalDuration(interval)
	if err != nil {
		return nil, err
	}
	if barCount <= 0 {
		return nil, fmt.Errorf("sim: bar count must be positive")
	}
	if barCount > c.limit {
		return nil, fmt.Errorf("sim: bar count %d exceeds limit %d", barCount, c.limit)
	}

	end = end.UTC()
	start := end.Add(-period * time.Duration(barCount-1))

	result := make(map[int64][]exchange.Candle, len(assets))
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, asset := range assets {
		c.requests.Add(1)
		scripted, ok := c.candles[asset.SID]
		if !ok && c.synth {
			result[asset.SID] = syntheticWindow(asset.SID, start, end, period)
			continue
		}
		var window []exchange.Candle
		for _, candle := range scripted {
			if candle.LastTraded.Before(start) || candle.LastTraded.After(end) {
				continue
			}
			window = append(window, candle)
		}
		result[asset.SID] = window
	}
	return result, nil
}

func intervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("sim: unsupported interval %q", interval)
}

// syntheticWindow produces a deterministic price walk with every seventh
// period dropped, so forward-fill paths get exercised offline.
func syntheticWindow(sid int64, start, end time.Time, period time.Duration) []exchange.Candle {
	base := 100.0 + float64(sid)
	var out []exchange.Candle
	for t := start; !t.After(end); t = t.Add(period) {
		seq := t.Unix() / int64(period.Seconds())
		if seq%7 == 3 {
			continue
		}
		px := base + 2*math.Sin(float64(seq)/10)
		out = append(out, exchange.Candle{
			LastTraded: t,
			Open:       px,
			High:       px * 1.001,
			Low:        px * 0.999,
			Close:      px * 1.0005,
			Volume:     10 + float64(seq%5),
		})
	}
	return out
}
