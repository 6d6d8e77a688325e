package hyperliquid

import (
	"net/http"

	"bundlekit/pkg/exchange"
)

func init() {
	exchange.RegisterClient("hyperliquid", func(name string, cfg *exchange.SourceConfig) (exchange.Client, error) {
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		if cfg.CandleLimit > 0 {
			opts = append(opts, WithCandleLimit(cfg.CandleLimit))
		}
		return NewClient(opts...), nil
	})
}
