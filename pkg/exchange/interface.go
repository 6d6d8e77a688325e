package exchange

import (
	"context"
	"time"

	"bundlekit/pkg/catalog"
)

// Candle is a single OHLCV observation. LastTraded is aligned to the
// period boundary the candle opened on.
type Candle struct {
	LastTraded time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// Client fetches historical candles from a remote market data source.
type Client interface {
	// FetchCandles returns up to barCount candles per asset ending at end,
	// keyed by asset SID. interval is a source token such as "1m" or "1d".
	// Sparse results are expected; missing periods carry no entry.
	FetchCandles(ctx context.Context, assets []catalog.Asset, interval string, end time.Time, barCount int) (map[int64][]Candle, error)
	// RequestCount reports the number of upstream requests issued so far.
	RequestCount() int64
	// CandleLimit is the maximum barCount the source accepts per request.
	CandleLimit() int
}
