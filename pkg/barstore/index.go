package barstore

import (
	"fmt"
	"time"
)

// indexer converts timestamps into period offsets from the bundle start
// session. Offsets are what the Index column stores.
type indexer struct {
	meta     metadata
	sessions Sessions
}

func newIndexer(meta metadata) (indexer, error) {
	sessions, err := NewSessions(meta.Calendar)
	if err != nil {
		return indexer{}, err
	}
	return indexer{meta: meta, sessions: sessions}, nil
}

func (ix indexer) start() time.Time {
	return time.Unix(ix.meta.StartSession, 0).UTC()
}

func (ix indexer) end() time.Time {
	return time.Unix(ix.meta.EndSession, 0).UTC()
}

func (ix indexer) periodIndex(t time.Time) (int64, error) {
	t = t.UTC()
	start := ix.start()
	if t.Before(start) {
		return 0, fmt.Errorf("barstore: %s is before the bundle start session %s", t, start)
	}
	if dayOf(t).After(dayOf(ix.end())) {
		return 0, fmt.Errorf("barstore: %s is after the bundle end session %s", t, ix.end())
	}
	if !ix.sessions.IsSession(t) {
		return 0, fmt.Errorf("barstore: %s is not a trading session for calendar %s", t, ix.sessions.Name())
	}

	day := dayOf(t)
	sessionIdx := int64(ix.sessions.CountBetween(start, day))
	if ix.meta.PeriodsPerDay <= 1 {
		return sessionIdx, nil
	}
	period := time.Duration(ix.meta.PeriodSeconds) * time.Second
	intoDay := int64(t.Sub(day) / period)
	if intoDay >= int64(ix.meta.PeriodsPerDay) {
		return 0, fmt.Errorf("barstore: %s exceeds %d periods per day", t, ix.meta.PeriodsPerDay)
	}
	return sessionIdx*int64(ix.meta.PeriodsPerDay) + intoDay, nil
}
