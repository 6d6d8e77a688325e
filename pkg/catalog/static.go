package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StaticCatalog serves a fixed asset universe loaded from a YAML file.
type StaticCatalog struct {
	assets []Asset
}

type staticEntry struct {
	SID       int64  `yaml:"sid"`
	Symbol    string `yaml:"symbol"`
	StartDate string `yaml:"start_date"`
}

type staticFile struct {
	Assets []staticEntry `yaml:"assets"`
}

// NewStaticCatalog wraps an in-memory asset list.
func NewStaticCatalog(assets []Asset) *StaticCatalog {
	return &StaticCatalog{assets: assets}
}

// LoadStaticCatalog reads a catalog definition from disk.
func LoadStaticCatalog(path string) (*StaticCatalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer file.Close()
	return LoadStaticCatalogFromReader(file)
}

// LoadStaticCatalogFromReader parses a catalog definition from an io.Reader.
func LoadStaticCatalogFromReader(r io.Reader) (*StaticCatalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var raw staticFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	assets := make([]Asset, 0, len(raw.Assets))
	seen := make(map[int64]struct{}, len(raw.Assets))
	for _, entry := range raw.Assets {
		sym := canonicalSymbol(entry.Symbol)
		if sym == "" {
			return nil, fmt.Errorf("catalog: entry sid=%d has empty symbol", entry.SID)
		}
		if _, ok := seen[entry.SID]; ok {
			return nil, fmt.Errorf("catalog: duplicate sid %d", entry.SID)
		}
		seen[entry.SID] = struct{}{}
		start, err := parseDate(entry.StartDate)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s start_date: %w", sym, err)
		}
		assets = append(assets, Asset{SID: entry.SID, Symbol: sym, StartDate: start})
	}
	return NewStaticCatalog(assets), nil
}

// Assets implements Catalog.
func (c *StaticCatalog) Assets(_ context.Context, filter Filter) ([]Asset, error) {
	return filter.Apply(c.assets), nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
