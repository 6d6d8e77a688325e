package barstore

import (
	"fmt"
	"math"
	"os"
	"time"
)

// Writer appends bars to a bundle directory. A bundle is append-only per
// instrument: a unit whose first row does not land strictly after the
// instrument's last recorded period is refused with ErrOverlappingWrite
// and the whole write is discarded.
type Writer struct {
	dir string
	ix  indexer
}

// NewWriter initializes a fresh bundle directory. It refuses to run on a
// directory that already holds bundle metadata.
func NewWriter(dir string, params Params) (*Writer, error) {
	if Exists(dir) {
		return nil, fmt.Errorf("barstore: %s is already initialized", dir)
	}
	if params.Period <= 0 {
		return nil, fmt.Errorf("barstore: period must be positive")
	}
	if params.PeriodsPerDay <= 0 {
		return nil, fmt.Errorf("barstore: periods per day must be positive")
	}
	if !params.StartSession.Before(params.EndSession) {
		return nil, fmt.Errorf("barstore: start session must precede end session")
	}
	scale := params.OhlcScale
	if scale <= 0 {
		scale = DefaultScale
	}
	sessions, err := NewSessions(params.Calendar)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("barstore: create %s: %w", dir, err)
	}
	meta := metadata{
		Version:       formatVersion,
		Calendar:      sessions.Name(),
		PeriodSeconds: int64(params.Period / time.Second),
		PeriodsPerDay: params.PeriodsPerDay,
		OhlcScale:     scale,
		StartSession:  params.StartSession.UTC().Unix(),
		EndSession:    params.EndSession.UTC().Unix(),
	}
	if err := saveMetadata(dir, meta); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, ix: indexer{meta: meta, sessions: sessions}}, nil
}

// OpenWriter opens an initialized bundle in append mode, extending its end
// session up to end when the new bound is later.
func OpenWriter(dir string, end time.Time) (*Writer, error) {
	meta, err := loadMetadata(dir)
	if err != nil {
		return nil, fmt.Errorf("barstore: open %s: %w", dir, err)
	}
	if bound := end.UTC().Unix(); bound > meta.EndSession {
		meta.EndSession = bound
		if err := saveMetadata(dir, meta); err != nil {
			return nil, err
		}
	}
	ix, err := newIndexer(meta)
	if err != nil {
		return nil, err
	}
	return &Writer{dir: dir, ix: ix}, nil
}

// Write persists all units, or none. Every unit is validated against the
// calendar and the instrument's recorded range before anything touches
// disk, so a rejected write leaves the bundle exactly as it was.
func (w *Writer) Write(units []Unit) error {
	staged := make(map[int64]*sidColumns, len(units))
	for _, unit := range units {
		if len(unit.Rows) == 0 {
			continue
		}
		if _, ok := staged[unit.SID]; ok {
			return fmt.Errorf("barstore: duplicate unit for sid %d", unit.SID)
		}
		cols, err := loadColumns(w.dir, unit.SID)
		if err != nil {
			return err
		}
		if err := w.appendRows(unit.SID, cols, unit.Rows); err != nil {
			return err
		}
		staged[unit.SID] = cols
	}
	for sid, cols := range staged {
		if err := saveColumns(w.dir, sid, cols); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) appendRows(sid int64, cols *sidColumns, rows []Row) error {
	scale := float64(w.ix.meta.OhlcScale)
	prev, havePrev := cols.lastIndex()
	for _, row := range rows {
		idx, err := w.ix.periodIndex(row.Timestamp)
		if err != nil {
			return err
		}
		if havePrev && idx <= prev {
			return fmt.Errorf("%w: sid %d at %s (last written period %d)",
				ErrOverlappingWrite, sid, row.Timestamp.UTC(), prev)
		}
		open, err := encodePrice(row.Open, scale)
		if err != nil {
			return fmt.Errorf("barstore: sid %d open at %s: %w", sid, row.Timestamp.UTC(), err)
		}
		high, err := encodePrice(row.High, scale)
		if err != nil {
			return fmt.Errorf("barstore: sid %d high at %s: %w", sid, row.Timestamp.UTC(), err)
		}
		low, err := encodePrice(row.Low, scale)
		if err != nil {
			return fmt.Errorf("barstore: sid %d low at %s: %w", sid, row.Timestamp.UTC(), err)
		}
		closePx, err := encodePrice(row.Close, scale)
		if err != nil {
			return fmt.Errorf("barstore: sid %d close at %s: %w", sid, row.Timestamp.UTC(), err)
		}
		cols.Index = append(cols.Index, idx)
		cols.Open = append(cols.Open, open)
		cols.High = append(cols.High, high)
		cols.Low = append(cols.Low, low)
		cols.Close = append(cols.Close, closePx)
		cols.Volume = append(cols.Volume, row.Volume)
		prev, havePrev = idx, true
	}
	return nil
}

func encodePrice(px, scale float64) (uint64, error) {
	if px < 0 || math.IsNaN(px) || math.IsInf(px, 0) {
		return 0, fmt.Errorf("invalid price %v", px)
	}
	return uint64(math.Round(px * scale)), nil
}
