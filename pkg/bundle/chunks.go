package bundle

import (
	"fmt"
	"time"
)

// Chunk is one bounded fetch-and-write unit of the ingestion window. It
// covers the BarCount period boundaries in the half-open window
// (End - BarCount*period, End].
type Chunk struct {
	End      time.Time
	BarCount int
}

// Start returns the oldest period boundary the chunk covers.
func (c Chunk) Start(g Granularity) time.Time {
	return c.End.Add(-time.Duration(c.BarCount-1) * g.Period())
}

// PlanChunks splits [start, end] into chunks of at most requestLimit
// bars. Every period boundary in the window lands in exactly one chunk,
// chunks come back oldest-first with strictly increasing ends, and a
// remainder smaller than the limit sits at the oldest boundary rather
// than being dropped.
func PlanChunks(start, end time.Time, g Granularity, requestLimit int) ([]Chunk, error) {
	if !g.valid() {
		return nil, ErrUnsupportedGranularity
	}
	if requestLimit < 1 {
		return nil, fmt.Errorf("bundle: request limit must be at least 1, got %d", requestLimit)
	}
	period := g.Period()
	end = end.UTC().Truncate(period)
	start = start.UTC()
	if end.Before(start) {
		return nil, fmt.Errorf("%w: no %s boundary between %s and %s", ErrInvalidRange, g, start, end)
	}

	total := int(end.Sub(start)/period) + 1
	chunks := make([]Chunk, 0, (total+requestLimit-1)/requestLimit)
	chunkEnd := end
	for remaining := total; remaining > 0; {
		bars := requestLimit
		if remaining < bars {
			bars = remaining
		}
		chunks = append(chunks, Chunk{End: chunkEnd, BarCount: bars})
		chunkEnd = chunkEnd.Add(-time.Duration(bars) * period)
		remaining -= bars
	}

	// Built newest-first; execution order is oldest-first.
	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}
	return chunks, nil
}
