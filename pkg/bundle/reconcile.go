package bundle

import (
	"github.com/zeromicro/go-zero/core/logx"

	"bundlekit/pkg/barstore"
	"bundlekit/pkg/catalog"
	"bundlekit/pkg/exchange"
)

// Reconciler converts sparse fetched candles into dense per-asset series.
// It owns the per-run carry state: the last known candle per instrument,
// held constant across missing periods and across chunk boundaries until
// a newer observation arrives. One Reconciler serves exactly one
// ingestion run; chunks must be fed oldest-first.
type Reconciler struct {
	gran  Granularity
	carry map[int64]exchange.Candle
}

// NewReconciler creates carry state for one run.
func NewReconciler(g Granularity) (*Reconciler, error) {
	if !g.valid() {
		return nil, ErrUnsupportedGranularity
	}
	return &Reconciler{gran: g, carry: make(map[int64]exchange.Candle)}, nil
}

// Reconcile walks every period boundary of the chunk window for each
// asset. A fetched candle at the boundary is emitted and becomes the
// carried candle; otherwise the carried candle is repeated. Boundaries
// before an asset's first observation produce nothing. Returns the
// persistence units and the total row count for observability.
func (r *Reconciler) Reconcile(assets []catalog.Asset, fetched map[int64][]exchange.Candle, chunk Chunk) ([]barstore.Unit, int) {
	period := r.gran.Period()
	start := chunk.Start(r.gran)

	units := make([]barstore.Unit, 0, len(assets))
	total := 0
	for _, asset := range assets {
		candles := fetched[asset.SID]
		if _, ok := r.carry[asset.SID]; !ok && len(candles) == 0 {
			logx.Debugf("bundle: no data for %s in chunk ending %s", asset.Symbol, chunk.End)
			continue
		}

		byBoundary := make(map[int64]exchange.Candle, len(candles))
		for _, candle := range candles {
			byBoundary[candle.LastTraded.UTC().Unix()] = candle
		}

		rows := make([]barstore.Row, 0, chunk.BarCount)
		for t := start; !t.After(chunk.End); t = t.Add(period) {
			candle, observed := byBoundary[t.Unix()]
			if observed {
				r.carry[asset.SID] = candle
			} else {
				candle, observed = r.carry[asset.SID]
			}
			if !observed {
				continue
			}
			rows = append(rows, barstore.Row{
				Timestamp: t,
				Open:      candle.Open,
				High:      candle.High,
				Low:       candle.Low,
				Close:     candle.Close,
				Volume:    candle.Volume,
			})
		}
		if len(rows) == 0 {
			continue
		}
		total += len(rows)
		units = append(units, barstore.Unit{SID: asset.SID, Rows: rows})
	}
	return units, total
}
