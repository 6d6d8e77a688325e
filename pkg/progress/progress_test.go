package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapReturnsItemsUnchanged(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf)

	items := []string{"a", "b", "c"}
	got := Wrap(tracker, "fetching", items)
	assert.Equal(t, items, got, "ordering and contents must be preserved")

	tracker.Advance("a")
	tracker.Advance("b")
	tracker.Advance("c")
	tracker.Finish()

	out := buf.String()
	assert.Contains(t, out, "fetching 3/3")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestShorterMessageClearsLongerOne(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf)

	Wrap(tracker, "work", []int{1, 2})
	tracker.Advance("a very long detail message")
	before := buf.Len()
	tracker.Advance("x")
	tail := buf.String()[before:]
	assert.Greater(t, len(tail), len("work 2/2 x"), "short line must be padded to clear the previous one")
}

func TestNilTrackerIsNoOp(t *testing.T) {
	var tracker *Tracker
	items := Wrap(tracker, "quiet", []int{1, 2, 3})
	assert.Len(t, items, 3)
	tracker.Advance("1")
	tracker.Finish()
}
