package bundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlekit/pkg/catalog"
	"bundlekit/pkg/exchange"
)

func candleAt(ts time.Time, px float64) exchange.Candle {
	return exchange.Candle{
		LastTraded: ts,
		Open:       px,
		High:       px + 1,
		Low:        px - 1,
		Close:      px + 0.5,
		Volume:     42,
	}
}

func TestReconcileForwardFillsGaps(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asset := catalog.Asset{SID: 1, Symbol: "BTC", StartDate: start}
	chunk := Chunk{End: start.Add(4 * time.Minute), BarCount: 5}

	r, err := NewReconciler(Minute)
	require.NoError(t, err)

	fetched := map[int64][]exchange.Candle{
		1: {
			candleAt(start, 100),
			candleAt(start.Add(3*time.Minute), 110),
		},
	}
	units, rows := r.Reconcile([]catalog.Asset{asset}, fetched, chunk)
	require.Len(t, units, 1)
	assert.Equal(t, 5, rows)
	assert.Equal(t, int64(1), units[0].SID)
	require.Len(t, units[0].Rows, 5)

	// Minutes 1 and 2 repeat the minute-0 candle's values, minute 4
	// repeats minute 3.
	wantClose := []float64{100.5, 100.5, 100.5, 110.5, 110.5}
	for i, row := range units[0].Rows {
		assert.Equal(t, start.Add(time.Duration(i)*time.Minute), row.Timestamp, "row %d", i)
		assert.Equal(t, wantClose[i], row.Close, "row %d", i)
		assert.Equal(t, 42.0, row.Volume, "row %d", i)
	}
}

func TestReconcileNeverFabricatesBeforeFirstObservation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asset := catalog.Asset{SID: 1, Symbol: "BTC", StartDate: start}
	chunk := Chunk{End: start.Add(4 * time.Minute), BarCount: 5}

	r, err := NewReconciler(Minute)
	require.NoError(t, err)

	fetched := map[int64][]exchange.Candle{
		1: {candleAt(start.Add(2*time.Minute), 100)},
	}
	units, rows := r.Reconcile([]catalog.Asset{asset}, fetched, chunk)
	require.Len(t, units, 1)
	assert.Equal(t, 3, rows)
	assert.Equal(t, start.Add(2*time.Minute), units[0].Rows[0].Timestamp)
}

func TestReconcileCarriesAcrossChunks(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asset := catalog.Asset{SID: 7, Symbol: "ETH", StartDate: start}

	r, err := NewReconciler(Minute)
	require.NoError(t, err)

	first := Chunk{End: start.Add(2 * time.Minute), BarCount: 3}
	units, _ := r.Reconcile([]catalog.Asset{asset},
		map[int64][]exchange.Candle{7: {candleAt(start, 200)}}, first)
	require.Len(t, units, 1)
	require.Len(t, units[0].Rows, 3)

	// The next chunk fetched nothing; the last candle of the previous
	// chunk still fills every boundary.
	second := Chunk{End: start.Add(5 * time.Minute), BarCount: 3}
	units, rows := r.Reconcile([]catalog.Asset{asset}, nil, second)
	require.Len(t, units, 1)
	assert.Equal(t, 3, rows)
	for i, row := range units[0].Rows {
		assert.Equal(t, start.Add(time.Duration(3+i)*time.Minute), row.Timestamp)
		assert.Equal(t, 200.5, row.Close)
	}
}

func TestReconcileSkipsAssetWithNoHistory(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assets := []catalog.Asset{
		{SID: 1, Symbol: "BTC", StartDate: start},
		{SID: 2, Symbol: "ETH", StartDate: start},
	}
	chunk := Chunk{End: start.Add(1 * time.Minute), BarCount: 2}

	r, err := NewReconciler(Minute)
	require.NoError(t, err)

	units, rows := r.Reconcile(assets,
		map[int64][]exchange.Candle{1: {candleAt(start, 100)}}, chunk)
	require.Len(t, units, 1)
	assert.Equal(t, int64(1), units[0].SID)
	assert.Equal(t, 2, rows)
}

func TestReconcileDailySteps(t *testing.T) {
	day0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asset := catalog.Asset{SID: 3, Symbol: "SOL", StartDate: day0}
	chunk := Chunk{End: day0.AddDate(0, 0, 2), BarCount: 3}

	r, err := NewReconciler(Daily)
	require.NoError(t, err)

	units, rows := r.Reconcile([]catalog.Asset{asset},
		map[int64][]exchange.Candle{3: {candleAt(day0, 50)}}, chunk)
	require.Len(t, units, 1)
	assert.Equal(t, 3, rows)
	assert.Equal(t, day0.AddDate(0, 0, 1), units[0].Rows[1].Timestamp)
	assert.Equal(t, day0.AddDate(0, 0, 2), units[0].Rows[2].Timestamp)
}

func TestNewReconcilerRejectsUnknownGranularity(t *testing.T) {
	_, err := NewReconciler(Granularity(9))
	require.ErrorIs(t, err, ErrUnsupportedGranularity)
}
