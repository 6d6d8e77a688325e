package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bundlekit/internal/cli"
	"bundlekit/internal/config"
	"bundlekit/pkg/bundle"
	"bundlekit/pkg/catalog"
	"bundlekit/pkg/progress"

	// Import for side-effects: registers market data clients
	_ "bundlekit/pkg/exchange/hyperliquid"
	_ "bundlekit/pkg/exchange/sim"
)

var (
	configFile = flag.String("f", "etc/bundlekit.yaml", "path to the application config file")
	market     = flag.String("market", "", "market to ingest, overrides the config")
	freq       = flag.String("freq", "", "bar granularity (minute|daily), overrides the config")
	startFlag  = flag.String("start", "", "first day to ingest (2006-01-02), overrides the config")
	endFlag    = flag.String("end", "", "last day to ingest (2006-01-02), defaults to now")
	include    = flag.String("include", "", "comma separated symbols to ingest, empty means all")
	exclude    = flag.String("exclude", "", "comma separated symbols to leave out")
	noProgress = flag.Bool("no-progress", false, "disable the progress line")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configFile, err)
	}
	applyFlagOverrides(cfg)

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(cfg) {
		log.Printf("  - %s", line)
	}

	gran, err := bundle.ParseGranularity(cfg.Ingest.Granularity)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	start, err := config.ParseDate(cfg.Ingest.Start)
	if err != nil {
		log.Fatalf("[main] Bad start date: %v", err)
	}
	end, err := config.ParseDate(cfg.Ingest.End)
	if err != nil {
		log.Fatalf("[main] Bad end date: %v", err)
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := cfg.OpenCatalog()
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	assets, err := cat.Assets(ctx, catalog.Filter{
		Include: catalog.ParseSymbols(cfg.Ingest.Include),
		Exclude: catalog.ParseSymbols(cfg.Ingest.Exclude),
	})
	if err != nil {
		log.Fatalf("[main] Failed to list assets: %v", err)
	}
	if len(assets) == 0 {
		log.Fatalf("[main] No assets matched the requested symbols")
	}

	client, err := cfg.BuildMarketClient()
	if err != nil {
		log.Fatalf("[main] Failed to build market data client: %v", err)
	}

	var tracker *progress.Tracker
	if cfg.ShowProgress && !*noProgress {
		tracker = progress.NewTracker(os.Stdout)
	}

	ingestor, err := bundle.NewIngestor(bundle.IngestorConfig{
		Market:      cfg.Ingest.Market,
		Granularity: gran,
		StoreRoot:   cfg.DataRoot,
		Calendar:    cfg.Ingest.Calendar,
		Assets:      assets,
		Client:      client,
		Progress:    tracker,
	})
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	if err := ingestor.Ingest(ctx, start, end); err != nil {
		if ctx.Err() != nil {
			log.Printf("[main] Ingestion interrupted: %v", err)
			return
		}
		log.Fatalf("[main] Ingestion failed: %v", err)
	}
	log.Printf("[main] Done.")
}

func applyFlagOverrides(cfg *config.Config) {
	if *market != "" {
		cfg.Ingest.Market = *market
	}
	if *freq != "" {
		cfg.Ingest.Granularity = *freq
	}
	if *startFlag != "" {
		cfg.Ingest.Start = *startFlag
	}
	if *endFlag != "" {
		cfg.Ingest.End = *endFlag
	}
	if *include != "" {
		cfg.Ingest.Include = *include
	}
	if *exclude != "" {
		cfg.Ingest.Exclude = *exclude
	}
}
