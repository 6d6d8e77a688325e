// Package progress renders in-place progress lines for batch jobs. A nil
// Tracker is a valid no-op, so callers never branch on whether progress
// output is enabled.
package progress

import (
	"fmt"
	"io"
	"strings"
)

// Tracker prints progress messages that overwrite the previous line.
type Tracker struct {
	w     io.Writer
	label string
	total int
	done  int
	max   int
}

// NewTracker writes progress to w. A nil writer disables output but keeps
// the Tracker usable.
func NewTracker(w io.Writer) *Tracker {
	if w == nil {
		return nil
	}
	return &Tracker{w: w}
}

// Wrap registers a batch of work items under a label and returns the same
// slice, unchanged and in the same order.
func Wrap[T any](t *Tracker, label string, items []T) []T {
	if t != nil {
		t.label = label
		t.total = len(items)
		t.done = 0
		t.render("")
	}
	return items
}

// Advance marks one item complete and re-renders the line.
func (t *Tracker) Advance(detail string) {
	if t == nil {
		return
	}
	t.done++
	t.render(detail)
}

// Finish completes the line and moves to the next one.
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	t.render("done")
	_, _ = fmt.Fprintln(t.w)
}

func (t *Tracker) render(detail string) {
	message := fmt.Sprintf("%s %d/%d", t.label, t.done, t.total)
	if detail != "" {
		message += " " + detail
	}
	// Pad with spaces so a shorter message fully clears the longer one
	// printed before it.
	_, _ = fmt.Fprint(t.w, message+strings.Repeat(" ", pad(t.max, len(message)))+"\r")
	if len(message) > t.max {
		t.max = len(message)
	}
}

func pad(max, n int) int {
	if max > n {
		return max - n
	}
	return 0
}
