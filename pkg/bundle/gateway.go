package bundle

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"bundlekit/pkg/barstore"
	"bundlekit/pkg/catalog"
)

// WriteResult reports how the store handled a chunk write.
type WriteResult int

const (
	// Written means the chunk's rows were appended to the store.
	Written WriteResult = iota
	// AlreadyPresent means the store already held data inside the
	// chunk's range; nothing was changed.
	AlreadyPresent
)

// StoreGateway lazily binds a reader and a writer for one bundle
// location, keyed by market and granularity. Handles are cached for the
// gateway's lifetime; each ingestion run owns its own gateway.
type StoreGateway struct {
	root     string
	market   string
	gran     Granularity
	calendar string
	start    time.Time
	end      time.Time

	reader *barstore.Reader
	writer *barstore.Writer
}

// NewStoreGateway validates the granularity up front and remembers the
// session bounds used when a fresh store must be initialized.
func NewStoreGateway(root, market string, g Granularity, calendarName string, start, end time.Time) (*StoreGateway, error) {
	if !g.valid() {
		return nil, ErrUnsupportedGranularity
	}
	if root == "" {
		return nil, fmt.Errorf("bundle: store root is required")
	}
	if market == "" {
		return nil, fmt.Errorf("bundle: market name is required")
	}
	if calendarName == "" {
		calendarName = barstore.CalendarOpen
	}
	return &StoreGateway{
		root:     root,
		market:   market,
		gran:     g,
		calendar: calendarName,
		start:    start.UTC(),
		end:      end.UTC(),
	}, nil
}

// Dir returns the bundle directory for the gateway's market and
// granularity.
func (sg *StoreGateway) Dir() string {
	return filepath.Join(sg.root, sg.market, sg.gran.BundleDir())
}

// Reader returns the cached read handle, opening it on first use. An
// uninitialized store yields nil: no data yet.
func (sg *StoreGateway) Reader() *barstore.Reader {
	if sg.reader != nil {
		return sg.reader
	}
	reader, err := barstore.OpenReader(sg.Dir())
	if err != nil {
		logx.Debugf("bundle: no reader data found in %s: %v", sg.Dir(), err)
		return nil
	}
	sg.reader = reader
	return sg.reader
}

// Writer returns the cached write handle, opening the store in append
// mode when it exists and initializing it otherwise.
func (sg *StoreGateway) Writer() (*barstore.Writer, error) {
	if sg.writer != nil {
		return sg.writer, nil
	}
	dir := sg.Dir()
	var (
		writer *barstore.Writer
		err    error
	)
	if barstore.Exists(dir) {
		writer, err = barstore.OpenWriter(dir, sg.end)
	} else {
		writer, err = barstore.NewWriter(dir, barstore.Params{
			Calendar:      sg.calendar,
			Period:        sg.gran.Period(),
			PeriodsPerDay: sg.gran.PeriodsPerDay(),
			OhlcScale:     barstore.DefaultScale,
			StartSession:  sg.start,
			EndSession:    sg.end,
		})
	}
	if err != nil {
		return nil, err
	}
	sg.writer = writer
	return sg.writer, nil
}

// Write appends the units. Overlap with already-recorded ranges comes
// back as AlreadyPresent rather than an error; everything else is fatal
// to the caller.
func (sg *StoreGateway) Write(units []barstore.Unit) (WriteResult, error) {
	writer, err := sg.Writer()
	if err != nil {
		return Written, err
	}
	if err := writer.Write(units); err != nil {
		if errors.Is(err, barstore.ErrOverlappingWrite) {
			return AlreadyPresent, nil
		}
		return Written, err
	}
	return Written, nil
}

// Exists reports whether the window [windowStart, windowEnd] is already
// fully recorded for every asset. The check is conservative: a missing
// reader, a read error, or a NaN at either endpoint makes it false,
// which only costs a refetch and an idempotent rewrite.
func (sg *StoreGateway) Exists(assets []catalog.Asset, windowStart, windowEnd time.Time) bool {
	reader := sg.Reader()
	if reader == nil {
		return false
	}
	for _, asset := range assets {
		for _, ts := range []time.Time{windowStart, windowEnd} {
			value, err := reader.GetValue(asset.SID, ts, barstore.FieldClose)
			if err != nil || math.IsNaN(value) {
				return false
			}
		}
	}
	return true
}
