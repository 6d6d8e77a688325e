// Package barstore implements a columnar, append-only OHLCV bar store.
// Bars are kept per instrument (sid) with prices encoded fixed-point and
// row positions derived from a trading-calendar session index, so a bundle
// directory is self-describing and safe to extend in place.
package barstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	metadataFile  = "metadata.msgpack"
	formatVersion = 1

	// DefaultScale is the fixed-point multiplier applied to OHLC values.
	DefaultScale = 1_000_000
	// MinutesPerDay is the row capacity of one session in a minute bundle.
	MinutesPerDay = 1440

	secondsPerDay = 86400
)

// Field names a bar column readable through Reader.GetValue.
type Field string

const (
	FieldOpen   Field = "open"
	FieldHigh   Field = "high"
	FieldLow    Field = "low"
	FieldClose  Field = "close"
	FieldVolume Field = "volume"
)

// ErrOverlappingWrite signals that a write covers a time range the store
// already has recorded for that instrument. The store is left untouched.
var ErrOverlappingWrite = errors.New("barstore: overlapping write")

// Row is one dense bar for an instrument.
type Row struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Unit pairs an instrument with the ordered rows to persist for it.
type Unit struct {
	SID  int64
	Rows []Row
}

// Params configures a freshly initialized bundle directory.
type Params struct {
	Calendar      string // calendar MIC, or "open" for 24/7 markets
	Period        time.Duration
	PeriodsPerDay int
	OhlcScale     int64
	StartSession  time.Time
	EndSession    time.Time
}

type metadata struct {
	Version       int    `msgpack:"version"`
	Calendar      string `msgpack:"calendar"`
	PeriodSeconds int64  `msgpack:"period_seconds"`
	PeriodsPerDay int    `msgpack:"periods_per_day"`
	OhlcScale     int64  `msgpack:"ohlc_scale"`
	StartSession  int64  `msgpack:"start_session"` // unix seconds
	EndSession    int64  `msgpack:"end_session"`
}

// sidColumns is the on-disk column layout for one instrument. Index holds
// period offsets from the bundle start session, strictly increasing.
type sidColumns struct {
	Index  []int64   `msgpack:"index"`
	Open   []uint64  `msgpack:"open"`
	High   []uint64  `msgpack:"high"`
	Low    []uint64  `msgpack:"low"`
	Close  []uint64  `msgpack:"close"`
	Volume []float64 `msgpack:"volume"`
}

func (c *sidColumns) lastIndex() (int64, bool) {
	if len(c.Index) == 0 {
		return 0, false
	}
	return c.Index[len(c.Index)-1], true
}

func metadataPath(dir string) string {
	return filepath.Join(dir, metadataFile)
}

func sidPath(dir string, sid int64) string {
	return filepath.Join(dir, fmt.Sprintf("sid-%d.msgpack", sid))
}

func loadMetadata(dir string) (metadata, error) {
	var meta metadata
	data, err := os.ReadFile(metadataPath(dir))
	if err != nil {
		return meta, err
	}
	if err := msgpack.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("barstore: decode metadata: %w", err)
	}
	if meta.Version != formatVersion {
		return meta, fmt.Errorf("barstore: unsupported format version %d", meta.Version)
	}
	return meta, nil
}

func saveMetadata(dir string, meta metadata) error {
	data, err := msgpack.Marshal(meta)
	if err != nil {
		return fmt.Errorf("barstore: encode metadata: %w", err)
	}
	return writeFileAtomic(metadataPath(dir), data)
}

func loadColumns(dir string, sid int64) (*sidColumns, error) {
	data, err := os.ReadFile(sidPath(dir, sid))
	if err != nil {
		if os.IsNotExist(err) {
			return &sidColumns{}, nil
		}
		return nil, err
	}
	var cols sidColumns
	if err := msgpack.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("barstore: decode sid %d: %w", sid, err)
	}
	return &cols, nil
}

func saveColumns(dir string, sid int64, cols *sidColumns) error {
	data, err := msgpack.Marshal(cols)
	if err != nil {
		return fmt.Errorf("barstore: encode sid %d: %w", sid, err)
	}
	return writeFileAtomic(sidPath(dir, sid), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Exists reports whether dir looks like an initialized bundle.
func Exists(dir string) bool {
	_, err := os.Stat(metadataPath(dir))
	return err == nil
}
