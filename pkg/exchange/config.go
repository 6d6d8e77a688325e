package exchange

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"bundlekit/pkg/confkit"
)

// Config describes the market data sources available to the ingester.
type Config struct {
	Default string                   `yaml:"default"`
	Sources map[string]*SourceConfig `yaml:"sources"`
}

// SourceConfig configures a single market data source.
type SourceConfig struct {
	Type string `yaml:"type"`

	BaseURL string `yaml:"base_url"`

	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`
	CandleLimit    int           `yaml:"candle_limit"`
}

// ClientBuilder constructs a Client from configuration.
type ClientBuilder func(name string, cfg *SourceConfig) (Client, error)

var (
	clientRegistry   = make(map[string]ClientBuilder)
	clientRegistryMu sync.RWMutex
)

// RegisterClient registers a market data client constructor.
func RegisterClient(typeName string, builder ClientBuilder) {
	clientRegistryMu.Lock()
	defer clientRegistryMu.Unlock()
	clientRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupClientBuilder(typeName string) (ClientBuilder, bool) {
	clientRegistryMu.RLock()
	defer clientRegistryMu.RUnlock()
	builder, ok := clientRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads source configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exchange config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read exchange config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal exchange config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Sources == nil {
		c.Sources = make(map[string]*SourceConfig)
	}
	for name, source := range c.Sources {
		if source == nil {
			source = &SourceConfig{}
			c.Sources[name] = source
		}
		source.expandEnv()
		if err := source.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceConfig) expandEnv() {
	s.Type = strings.TrimSpace(os.ExpandEnv(s.Type))
	s.BaseURL = strings.TrimSpace(os.ExpandEnv(s.BaseURL))
	s.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(s.HTTPTimeoutRaw))
}

func (s *SourceConfig) parseDurations(name string) error {
	if s.HTTPTimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(s.HTTPTimeoutRaw)
	if err != nil {
		return fmt.Errorf("exchange source %s: invalid http_timeout %q: %w", name, s.HTTPTimeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("exchange source %s: http_timeout must be positive, got %s", name, d)
	}
	s.HTTPTimeout = d
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("exchange config: sources cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Sources[c.Default]; !ok {
			return fmt.Errorf("exchange config: default source %q not defined", c.Default)
		}
	}
	for name, source := range c.Sources {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("exchange config: source name cannot be empty")
		}
		if source == nil {
			return fmt.Errorf("exchange config: source %s is nil", name)
		}
		if strings.TrimSpace(source.Type) == "" {
			return fmt.Errorf("exchange config: source %s must specify type", name)
		}
		if _, ok := lookupClientBuilder(source.Type); !ok {
			return fmt.Errorf("exchange config: source %s has unsupported type %q", name, source.Type)
		}
		if source.CandleLimit < 0 {
			return fmt.Errorf("exchange config: source %s candle_limit cannot be negative", name)
		}
	}
	return nil
}

// BuildClients instantiates all configured market data clients.
func (c *Config) BuildClients() (map[string]Client, error) {
	result := make(map[string]Client, len(c.Sources))
	for name, sourceCfg := range c.Sources {
		builder, ok := lookupClientBuilder(sourceCfg.Type)
		if !ok {
			return nil, fmt.Errorf("exchange source %s: unsupported type %q", name, sourceCfg.Type)
		}
		client, err := builder(name, sourceCfg)
		if err != nil {
			return nil, fmt.Errorf("exchange source %s: %w", name, err)
		}
		result[name] = client
	}
	return result, nil
}

// BuildDefault instantiates the configured default client, or the sole
// configured source when no default is named.
func (c *Config) BuildDefault() (Client, error) {
	name := c.Default
	if name == "" {
		if len(c.Sources) != 1 {
			return nil, fmt.Errorf("exchange config: default source required when multiple sources are defined")
		}
		for only := range c.Sources {
			name = only
		}
	}
	sourceCfg := c.Sources[name]
	builder, _ := lookupClientBuilder(sourceCfg.Type)
	client, err := builder(name, sourceCfg)
	if err != nil {
		return nil, fmt.Errorf("exchange source %s: %w", name, err)
	}
	return client, nil
}
