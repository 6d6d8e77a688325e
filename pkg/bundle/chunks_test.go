package bundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanChunksCoversEveryBoundaryOnce(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(9 * time.Minute) // ten boundaries

	chunks, err := PlanChunks(start, end, Minute, 4)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Remainder sits at the oldest boundary.
	assert.Equal(t, 2, chunks[0].BarCount)
	assert.Equal(t, 4, chunks[1].BarCount)
	assert.Equal(t, 4, chunks[2].BarCount)

	// Oldest-first, strictly increasing ends, contiguous coverage.
	assert.Equal(t, start, chunks[0].Start(Minute))
	for i := 1; i < len(chunks); i++ {
		assert.True(t, chunks[i].End.After(chunks[i-1].End))
		assert.Equal(t, chunks[i-1].End.Add(time.Minute), chunks[i].Start(Minute))
	}
	assert.Equal(t, end, chunks[len(chunks)-1].End)
}

func TestPlanChunksSingleChunkUnderLimit(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	chunks, err := PlanChunks(start, end, Minute, 500)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, end, chunks[0].End)
	assert.Equal(t, 31, chunks[0].BarCount)
	assert.Equal(t, start, chunks[0].Start(Minute))
}

func TestPlanChunksDailyScenario(t *testing.T) {
	// Six daily boundaries split at two bars per request: the oldest
	// chunk ends on day 1, so an asset listed on day 3 takes no part
	// in it.
	day0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	chunks, err := PlanChunks(day0, day0.AddDate(0, 0, 5), Daily, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, day0.AddDate(0, 0, 1), chunks[0].End)
	assert.Equal(t, day0.AddDate(0, 0, 3), chunks[1].End)
	assert.Equal(t, day0.AddDate(0, 0, 5), chunks[2].End)
	for _, c := range chunks {
		assert.Equal(t, 2, c.BarCount)
	}

	day3 := day0.AddDate(0, 0, 3)
	assert.True(t, day3.After(chunks[0].End))
	assert.False(t, day3.After(chunks[1].End))
}

func TestPlanChunksTruncatesEndToPeriod(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(5*time.Minute + 30*time.Second)

	chunks, err := PlanChunks(start, end, Minute, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, start.Add(5*time.Minute), chunks[0].End)
	assert.Equal(t, 6, chunks[0].BarCount)
}

func TestPlanChunksValidation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := PlanChunks(start, start.Add(time.Hour), Granularity(0), 100)
	require.ErrorIs(t, err, ErrUnsupportedGranularity)

	_, err = PlanChunks(start, start.Add(time.Hour), Minute, 0)
	require.Error(t, err)

	_, err = PlanChunks(start, start.Add(-time.Hour), Minute, 100)
	require.ErrorIs(t, err, ErrInvalidRange)
}
