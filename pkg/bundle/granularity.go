package bundle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bundlekit/pkg/barstore"
)

// Granularity selects the fixed period per stored bar. It is a closed
// variant: every decision point (period math, fetch token, store layout)
// switches on it, and unknown values fail fast.
type Granularity int

const (
	Minute Granularity = iota + 1
	Daily
)

// ErrUnsupportedGranularity rejects granularity values outside the closed
// Minute/Daily set.
var ErrUnsupportedGranularity = errors.New("bundle: unsupported granularity")

// ParseGranularity maps a config token to a Granularity.
func ParseGranularity(raw string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "minute", "1m":
		return Minute, nil
	case "daily", "day", "1d":
		return Daily, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedGranularity, raw)
}

func (g Granularity) valid() bool {
	return g == Minute || g == Daily
}

// Period returns the duration of one bar.
func (g Granularity) Period() time.Duration {
	switch g {
	case Minute:
		return time.Minute
	case Daily:
		return 24 * time.Hour
	}
	panic(fmt.Sprintf("bundle: period of invalid granularity %d", g))
}

// Token is the interval identifier sent to market data sources.
func (g Granularity) Token() string {
	switch g {
	case Minute:
		return "1m"
	case Daily:
		return "1d"
	}
	panic(fmt.Sprintf("bundle: token of invalid granularity %d", g))
}

// PeriodsPerDay returns the store row capacity of one session.
func (g Granularity) PeriodsPerDay() int {
	switch g {
	case Minute:
		return barstore.MinutesPerDay
	case Daily:
		return 1
	}
	panic(fmt.Sprintf("bundle: periods per day of invalid granularity %d", g))
}

// BundleDir names the on-disk bundle directory for this granularity.
func (g Granularity) BundleDir() string {
	return g.String() + "_bundle"
}

func (g Granularity) String() string {
	switch g {
	case Minute:
		return "minute"
	case Daily:
		return "daily"
	}
	return fmt.Sprintf("granularity(%d)", int(g))
}
