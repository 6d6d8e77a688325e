package bundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlekit/pkg/barstore"
)

func TestParseGranularity(t *testing.T) {
	cases := map[string]Granularity{
		"minute": Minute,
		"1m":     Minute,
		"Minute": Minute,
		"daily":  Daily,
		"day":    Daily,
		"1d":     Daily,
		" 1d ":   Daily,
	}
	for raw, want := range cases {
		got, err := ParseGranularity(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseGranularity("hourly")
	require.ErrorIs(t, err, ErrUnsupportedGranularity)
	_, err = ParseGranularity("")
	require.ErrorIs(t, err, ErrUnsupportedGranularity)
}

func TestGranularityProperties(t *testing.T) {
	assert.Equal(t, time.Minute, Minute.Period())
	assert.Equal(t, 24*time.Hour, Daily.Period())
	assert.Equal(t, "1m", Minute.Token())
	assert.Equal(t, "1d", Daily.Token())
	assert.Equal(t, barstore.MinutesPerDay, Minute.PeriodsPerDay())
	assert.Equal(t, 1, Daily.PeriodsPerDay())
	assert.Equal(t, "minute_bundle", Minute.BundleDir())
	assert.Equal(t, "daily_bundle", Daily.BundleDir())
}
