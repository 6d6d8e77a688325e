// Package bundle implements the historical candle ingestion pipeline:
// resolve the date range, plan fetch chunks under the source's request
// limit, skip chunks the store already holds, reconcile sparse candles
// into dense forward-filled series, and persist them append-only.
package bundle

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"bundlekit/pkg/catalog"
	"bundlekit/pkg/exchange"
	"bundlekit/pkg/progress"
)

// IngestorConfig enumerates the collaborators of one ingestion run.
type IngestorConfig struct {
	Market      string
	Granularity Granularity
	StoreRoot   string
	Calendar    string // store session calendar; defaults to always-open
	Assets      []catalog.Asset
	Client      exchange.Client
	Progress    *progress.Tracker // optional
	Now         func() time.Time  // optional, for tests
}

// Ingestor drives one sequential ingestion run. Chunks are processed
// strictly oldest-first because the reconciler carries the last known
// candle per asset across chunk boundaries.
type Ingestor struct {
	market   string
	gran     Granularity
	root     string
	calendar string
	assets   []catalog.Asset
	client   exchange.Client
	tracker  *progress.Tracker
	now      func() time.Time
}

// NewIngestor validates configuration before any I/O happens.
func NewIngestor(cfg IngestorConfig) (*Ingestor, error) {
	if !cfg.Granularity.valid() {
		return nil, ErrUnsupportedGranularity
	}
	if cfg.Market == "" {
		return nil, fmt.Errorf("bundle: market name is required")
	}
	if cfg.StoreRoot == "" {
		return nil, fmt.Errorf("bundle: store root is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("bundle: market data client is required")
	}
	if len(cfg.Assets) == 0 {
		return nil, fmt.Errorf("bundle: asset set is empty")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Ingestor{
		market:   cfg.Market,
		gran:     cfg.Granularity,
		root:     cfg.StoreRoot,
		calendar: cfg.Calendar,
		assets:   cfg.Assets,
		client:   cfg.Client,
		tracker:  cfg.Progress,
		now:      now,
	}, nil
}

// Ingest runs the pipeline over [start, end]. Cancellation is honored at
// chunk boundaries only, so every completed chunk stays durably written.
func (in *Ingestor) Ingest(ctx context.Context, start, end time.Time) error {
	start, end, err := ResolveRange(start, end, in.assets, in.now())
	if err != nil {
		return err
	}
	gateway, err := NewStoreGateway(in.root, in.market, in.gran, in.calendar, start, end)
	if err != nil {
		return err
	}
	chunks, err := PlanChunks(start, end, in.gran, in.client.CandleLimit())
	if err != nil {
		return err
	}
	reconciler, err := NewReconciler(in.gran)
	if err != nil {
		return err
	}

	logx.Infof("bundle: ingesting %d assets on %s from %s to %s in %d chunks",
		len(in.assets), in.market, start, end, len(chunks))

	label := fmt.Sprintf("Fetching %s %s candles:", in.market, in.gran)
	written, skipped := 0, 0
	for _, chunk := range progress.Wrap(in.tracker, label, chunks) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := in.ingestChunk(ctx, gateway, reconciler, chunk, &written, &skipped); err != nil {
			return err
		}
		in.tracker.Advance(chunk.End.Format("2006-01-02 15:04"))
	}
	in.tracker.Finish()

	logx.Infof("bundle: run complete on %s: %d chunks written, %d skipped, %d requests issued",
		in.market, written, skipped, in.client.RequestCount())
	return nil
}

func (in *Ingestor) ingestChunk(ctx context.Context, gateway *StoreGateway, reconciler *Reconciler, chunk Chunk, written, skipped *int) error {
	chunkStart := chunk.Start(in.gran)

	chunkAssets := make([]catalog.Asset, 0, len(in.assets))
	for _, asset := range in.assets {
		if !asset.StartDate.After(chunk.End) {
			chunkAssets = append(chunkAssets, asset)
		}
	}
	if len(chunkAssets) == 0 {
		logx.Debugf("bundle: no assets listed before %s, skipping chunk", chunk.End)
		*skipped++
		return nil
	}

	if gateway.Exists(chunkAssets, chunkStart, chunk.End) {
		logx.Debugf("bundle: the data chunk ending %s already exists", chunk.End)
		*skipped++
		return nil
	}

	candles, err := in.client.FetchCandles(ctx, chunkAssets, in.gran.Token(), chunk.End, chunk.BarCount)
	if err != nil {
		return fmt.Errorf("bundle: fetch chunk ending %s: %w", chunk.End, err)
	}
	logx.Debugf("bundle: request counter %d", in.client.RequestCount())

	units, rows := reconciler.Reconcile(chunkAssets, candles, chunk)
	if len(units) == 0 {
		logx.Debugf("bundle: nothing to persist for chunk ending %s", chunk.End)
		*skipped++
		return nil
	}

	logx.Debugf("bundle: writing %d candles from %s to %s", rows, chunkStart, chunk.End)
	result, err := gateway.Write(units)
	if err != nil {
		return fmt.Errorf("bundle: write chunk ending %s: %w", chunk.End, err)
	}
	if result == AlreadyPresent {
		logx.Infof("bundle: chunk ending %s already recorded, continuing", chunk.End)
		*skipped++
		return nil
	}
	*written++
	return nil
}
