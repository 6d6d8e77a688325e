package sim

import "bundlekit/pkg/exchange"

func init() {
	exchange.RegisterClient("sim", func(name string, cfg *exchange.SourceConfig) (exchange.Client, error) {
		opts := []Option{WithSynthetic(true)}
		if cfg.CandleLimit > 0 {
			opts = append(opts, WithCandleLimit(cfg.CandleLimit))
		}
		return New(opts...), nil
	})
}
