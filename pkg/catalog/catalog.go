package catalog

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Asset describes a tradable instrument known to the catalog.
type Asset struct {
	SID       int64     // Stable numeric identity used by the bar store
	Symbol    string    // Exchange-native symbol, e.g. "BTC"
	StartDate time.Time // First session the instrument traded
}

// Catalog supplies the asset universe for an ingestion run.
type Catalog interface {
	// Assets returns the instruments matching the filter, ordered by SID.
	Assets(ctx context.Context, filter Filter) ([]Asset, error)
}

// Filter narrows the asset universe by symbol. Include, when non-empty,
// restricts the result to the listed symbols; Exclude always removes its
// symbols. Matching is case-insensitive.
type Filter struct {
	Include []string
	Exclude []string
}

// Apply filters the supplied assets and returns them ordered by SID.
func (f Filter) Apply(assets []Asset) []Asset {
	include := symbolSet(f.Include)
	exclude := symbolSet(f.Exclude)

	out := make([]Asset, 0, len(assets))
	for _, asset := range assets {
		sym := canonicalSymbol(asset.Symbol)
		if sym == "" {
			continue
		}
		if len(include) > 0 {
			if _, ok := include[sym]; !ok {
				continue
			}
		}
		if _, ok := exclude[sym]; ok {
			continue
		}
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}

// EarliestStart returns the minimum StartDate across assets and whether
// the set was non-empty.
func EarliestStart(assets []Asset) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, asset := range assets {
		if !found || asset.StartDate.Before(earliest) {
			earliest = asset.StartDate
			found = true
		}
	}
	return earliest, found
}

// ParseSymbols splits a comma/space separated symbol list into canonical,
// de-duplicated form.
func ParseSymbols(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		sym := canonicalSymbol(field)
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

func canonicalSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func symbolSet(symbols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = canonicalSymbol(sym)
		if sym == "" {
			continue
		}
		set[sym] = struct{}{}
	}
	return set
}
