package bundle

import (
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"bundlekit/pkg/catalog"
)

// ErrInvalidRange rejects ingestion windows that collapse to nothing
// after adjustment.
var ErrInvalidRange = errors.New("bundle: invalid date range")

// ResolveRange computes the effective ingestion window. The end is
// clamped to now, and the start is raised to the earliest trade date
// found in the asset set.
func ResolveRange(start, end time.Time, assets []catalog.Asset, now time.Time) (time.Time, time.Time, error) {
	start, end, now = start.UTC(), end.UTC(), now.UTC()

	if end.After(now) {
		logx.Infof("bundle: adjusting the end date to now %s", now)
		end = now
	}
	if earliest, ok := catalog.EarliestStart(assets); ok && earliest.After(start) {
		logx.Infof("bundle: adjusting start date to earliest trade date found %s", earliest)
		start = earliest.UTC()
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange, start, end)
	}
	return start, end, nil
}
