package barstore

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteParams(start, end time.Time) Params {
	return Params{
		Calendar:      CalendarOpen,
		Period:        time.Minute,
		PeriodsPerDay: MinutesPerDay,
		OhlcScale:     DefaultScale,
		StartSession:  start,
		EndSession:    end,
	}
}

func row(ts time.Time, px float64) Row {
	return Row{Timestamp: ts, Open: px, High: px + 1, Low: px - 1, Close: px + 0.5, Volume: 42}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	writer, err := NewWriter(dir, minuteParams(start, end))
	require.NoError(t, err)

	rows := []Row{
		row(start, 9000.123456),
		row(start.Add(1*time.Minute), 9001),
		row(start.Add(3*time.Minute), 9003),
	}
	require.NoError(t, writer.Write([]Unit{{SID: 1, Rows: rows}}))

	reader, err := OpenReader(dir)
	require.NoError(t, err)

	closePx, err := reader.GetValue(1, start, FieldClose)
	require.NoError(t, err)
	assert.InDelta(t, 9000.623456, closePx, 1e-6, "fixed-point encoding keeps six decimals")

	open, err := reader.GetValue(1, start.Add(3*time.Minute), FieldOpen)
	require.NoError(t, err)
	assert.InDelta(t, 9003, open, 1e-6)

	volume, err := reader.GetValue(1, start.Add(1*time.Minute), FieldVolume)
	require.NoError(t, err)
	assert.Equal(t, 42.0, volume)

	missing, err := reader.GetValue(1, start.Add(2*time.Minute), FieldClose)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(missing), "unrecorded period reads as NaN")

	unknown, err := reader.GetValue(99, start, FieldClose)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(unknown), "unknown sid reads as NaN")

	_, err = reader.GetValue(1, start.Add(-time.Minute), FieldClose)
	assert.Error(t, err, "timestamp before the start session is unreadable")
}

func TestOverlappingWriteLeavesStoreUntouched(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	writer, err := NewWriter(dir, minuteParams(start, start.Add(24*time.Hour)))
	require.NoError(t, err)

	require.NoError(t, writer.Write([]Unit{{SID: 1, Rows: []Row{row(start, 100), row(start.Add(time.Minute), 101)}}}))

	// Unit for sid 2 is fine, sid 1 overlaps; nothing may be persisted.
	err = writer.Write([]Unit{
		{SID: 2, Rows: []Row{row(start, 50)}},
		{SID: 1, Rows: []Row{row(start.Add(time.Minute), 200)}},
	})
	require.ErrorIs(t, err, ErrOverlappingWrite)

	reader, err := OpenReader(dir)
	require.NoError(t, err)
	v, err := reader.GetValue(2, start, FieldClose)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v), "rejected write must not leak the valid unit")

	kept, err := reader.GetValue(1, start.Add(time.Minute), FieldOpen)
	require.NoError(t, err)
	assert.InDelta(t, 101, kept, 1e-6, "original data must be intact")
}

func TestAppendAfterReopenExtendsEnd(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	firstEnd := start.Add(time.Hour)

	writer, err := NewWriter(dir, minuteParams(start, firstEnd))
	require.NoError(t, err)
	require.NoError(t, writer.Write([]Unit{{SID: 5, Rows: []Row{row(start, 10)}}}))

	laterEnd := start.Add(48 * time.Hour)
	appender, err := OpenWriter(dir, laterEnd)
	require.NoError(t, err)

	late := start.Add(26 * time.Hour)
	require.NoError(t, appender.Write([]Unit{{SID: 5, Rows: []Row{row(late, 11)}}}))

	reader, err := OpenReader(dir)
	require.NoError(t, err)
	assert.True(t, reader.EndSession().Equal(laterEnd))
	v, err := reader.GetValue(5, late, FieldClose)
	require.NoError(t, err)
	assert.InDelta(t, 11.5, v, 1e-6)
}

func TestNewWriterValidation(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewWriter(dir, minuteParams(start, start))
	assert.Error(t, err, "start must precede end")

	_, err = NewWriter(dir, Params{Calendar: CalendarOpen, PeriodsPerDay: 1, StartSession: start, EndSession: start.Add(time.Hour)})
	assert.Error(t, err, "zero period is invalid")

	_, err = NewWriter(dir, minuteParams(start, start.Add(time.Hour)))
	require.NoError(t, err)
	_, err = NewWriter(dir, minuteParams(start, start.Add(time.Hour)))
	assert.Error(t, err, "double initialization is refused")
}

func TestOpenReaderRequiresMetadata(t *testing.T) {
	_, err := OpenReader(t.TempDir())
	assert.Error(t, err)
}

func TestDailyIndexUsesSessions(t *testing.T) {
	dir := t.TempDir()
	// Thursday through the following Wednesday on the NYSE calendar.
	start := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC)

	writer, err := NewWriter(dir, Params{
		Calendar:      "xnys",
		Period:        24 * time.Hour,
		PeriodsPerDay: 1,
		StartSession:  start,
		EndSession:    end,
	})
	require.NoError(t, err)

	friday := start.AddDate(0, 0, 1)
	monday := start.AddDate(0, 0, 4)
	require.NoError(t, writer.Write([]Unit{{SID: 1, Rows: []Row{row(start, 100), row(friday, 101), row(monday, 102)}}}))

	saturday := start.AddDate(0, 0, 2)
	err = writer.Write([]Unit{{SID: 2, Rows: []Row{row(saturday, 1)}}})
	assert.Error(t, err, "non-session day cannot be indexed")

	reader, err := OpenReader(dir)
	require.NoError(t, err)
	v, err := reader.GetValue(1, monday, FieldClose)
	require.NoError(t, err)
	assert.InDelta(t, 102.5, v, 1e-6)
}

func TestSessions(t *testing.T) {
	open, err := NewSessions("")
	require.NoError(t, err)
	assert.Equal(t, CalendarOpen, open.Name())
	saturday := time.Date(2020, 1, 4, 0, 0, 0, 0, time.UTC)
	assert.True(t, open.IsSession(saturday))
	assert.Equal(t, 7, open.CountBetween(saturday, saturday.AddDate(0, 0, 7)))

	nyse, err := NewSessions("XNYS")
	require.NoError(t, err)
	assert.False(t, nyse.IsSession(saturday))
	assert.Equal(t, 5, nyse.CountBetween(saturday, saturday.AddDate(0, 0, 7)), "one full week holds five NYSE sessions")

	_, err = NewSessions("not-a-mic")
	assert.Error(t, err)
}
