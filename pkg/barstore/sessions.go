package barstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// CalendarOpen selects the always-open session calendar used by 24/7
// markets such as crypto exchanges.
const CalendarOpen = "open"

// Sessions maps timestamps to session-relative row positions. A session
// is one trading day; for exchange-hours markets the trading calendar for
// the configured MIC decides which days trade.
type Sessions struct {
	name string
	cal  *calendar.Calendar
}

// NewSessions resolves a session calendar by MIC. Empty or "open" yields
// the always-open calendar; unknown MICs fail.
func NewSessions(name string) (Sessions, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == CalendarOpen {
		return Sessions{name: CalendarOpen}, nil
	}
	cal := calendar.GetCalendar(name)
	if cal == nil {
		return Sessions{}, fmt.Errorf("barstore: unknown calendar %q", name)
	}
	return Sessions{name: name, cal: cal}, nil
}

// Name returns the calendar identifier for persistence.
func (s Sessions) Name() string { return s.name }

// IsSession reports whether the day containing t trades.
func (s Sessions) IsSession(t time.Time) bool {
	if s.cal == nil {
		return true
	}
	return s.cal.IsBusinessDay(t.UTC())
}

// CountBetween returns the number of sessions in [start, t), where both
// bounds are truncated to their UTC day.
func (s Sessions) CountBetween(start, t time.Time) int {
	from := dayOf(start)
	to := dayOf(t)
	if !to.After(from) {
		return 0
	}
	if s.cal == nil {
		return int(to.Sub(from) / (secondsPerDay * time.Second))
	}
	count := 0
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		if s.cal.IsBusinessDay(day) {
			count++
		}
	}
	return count
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
