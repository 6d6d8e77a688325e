package barstore

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Reader serves point reads from a bundle directory. Unknown instruments
// and unrecorded periods read as NaN; timestamps the bundle's calendar
// cannot index return an error. Callers treat both as missing data.
type Reader struct {
	dir   string
	ix    indexer
	cache map[int64]*sidColumns
}

// OpenReader opens an initialized bundle for reading. A directory without
// bundle metadata is an error.
func OpenReader(dir string) (*Reader, error) {
	meta, err := loadMetadata(dir)
	if err != nil {
		return nil, fmt.Errorf("barstore: open %s: %w", dir, err)
	}
	ix, err := newIndexer(meta)
	if err != nil {
		return nil, err
	}
	return &Reader{dir: dir, ix: ix, cache: make(map[int64]*sidColumns)}, nil
}

// StartSession returns the first session bound recorded in metadata.
func (r *Reader) StartSession() time.Time { return r.ix.start() }

// EndSession returns the last session bound recorded in metadata.
func (r *Reader) EndSession() time.Time { return r.ix.end() }

// GetValue reads one field of the bar recorded for sid at ts.
func (r *Reader) GetValue(sid int64, ts time.Time, field Field) (float64, error) {
	idx, err := r.ix.periodIndex(ts)
	if err != nil {
		return math.NaN(), err
	}
	cols, err := r.columns(sid)
	if err != nil {
		return math.NaN(), err
	}
	pos := sort.Search(len(cols.Index), func(i int) bool { return cols.Index[i] >= idx })
	if pos >= len(cols.Index) || cols.Index[pos] != idx {
		return math.NaN(), nil
	}
	scale := float64(r.ix.meta.OhlcScale)
	switch field {
	case FieldOpen:
		return float64(cols.Open[pos]) / scale, nil
	case FieldHigh:
		return float64(cols.High[pos]) / scale, nil
	case FieldLow:
		return float64(cols.Low[pos]) / scale, nil
	case FieldClose:
		return float64(cols.Close[pos]) / scale, nil
	case FieldVolume:
		return cols.Volume[pos], nil
	}
	return math.NaN(), fmt.Errorf("barstore: unknown field %q", field)
}

func (r *Reader) columns(sid int64) (*sidColumns, error) {
	if cols, ok := r.cache[sid]; ok {
		return cols, nil
	}
	cols, err := loadColumns(r.dir, sid)
	if err != nil {
		return nil, err
	}
	r.cache[sid] = cols
	return cols, nil
}
