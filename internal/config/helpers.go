package config

import (
	"errors"

	"bundlekit/pkg/catalog"
	"bundlekit/pkg/exchange"
)

// OpenCatalog picks the asset catalog for this config: the Postgres
// catalog when a DSN is set, otherwise the static YAML catalog section.
func (c *Config) OpenCatalog() (catalog.Catalog, error) {
	if c.Postgres.DSN != "" {
		return catalog.OpenPGCatalog(c.Postgres.DSN), nil
	}
	if c.Catalog.Value != nil {
		return c.Catalog.Value, nil
	}
	return nil, errors.New("config: no catalog configured, set postgres.dsn or catalog.file")
}

// BuildMarketClient constructs the market data client named by the
// ingest market, falling back to the exchange section's default source.
func (c *Config) BuildMarketClient() (exchange.Client, error) {
	if c.Exchange.Value == nil {
		return nil, errors.New("config: no exchange sources configured, set exchange.file")
	}
	clients, err := c.Exchange.Value.BuildClients()
	if err != nil {
		return nil, err
	}
	if client, ok := clients[c.Ingest.Market]; ok {
		return client, nil
	}
	return c.Exchange.Value.BuildDefault()
}
