// Package config handles server configuration: defaults, an optional JSON
// file, the process environment (optionally seeded from a .env file) and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

// Provider names understood by the quote layer.
const (
	ProviderFinnhub = "finnhub"
	ProviderEODHD   = "eodhd"
)

// RateLimit configures a provider's token bucket.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// ProviderConfig is a provider ready to be registered: it has a key.
type ProviderConfig struct {
	Name  string
	Key   string
	Limit RateLimit
}

// RedisConfig enables the shared quote cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config holds runtime settings for the server.
//
// SigningSecret signs session tokens; the server refuses to start without it.
// An empty DatabaseDSN selects in-memory stores, which is meant for local runs
// and tests only.
type Config struct {
	ListenAddr     string
	DatabaseDSN    string
	SigningSecret  string
	TokenValidity  time.Duration
	AllowedOrigins []string
	LogLevel       string
	BcryptCost     int

	ProviderOrder  []string
	ProviderKeys   map[string]string
	ProviderLimits map[string]RateLimit

	QuoteTTL        time.Duration
	UpstreamTimeout time.Duration
	RequestTimeout  time.Duration
	ProviderCoolOff time.Duration
	RetryBackoff    time.Duration
	MaxRetries      int
	MaxInflight     int
	PortfolioFanOut int

	AllowShortSell    bool
	RefetchTradePrice bool

	Redis RedisConfig
}

// LoadDefaults populates Config with development defaults. The signing
// secret is deliberately left empty.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.DatabaseDSN = ""
	c.SigningSecret = ""
	c.TokenValidity = time.Hour
	c.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:5174"}
	c.LogLevel = "info"
	c.BcryptCost = 12

	c.ProviderOrder = []string{ProviderFinnhub, ProviderEODHD}
	c.ProviderKeys = map[string]string{}
	c.ProviderLimits = map[string]RateLimit{
		ProviderFinnhub: {PerSecond: 1, Burst: 5},
		ProviderEODHD:   {PerSecond: 1, Burst: 5},
	}

	c.QuoteTTL = 30 * time.Second
	c.UpstreamTimeout = 5 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.ProviderCoolOff = time.Minute
	c.RetryBackoff = 250 * time.Millisecond
	c.MaxRetries = 2
	c.MaxInflight = 10000
	c.PortfolioFanOut = 8
}

// LoadConfig builds a Config from defaults, then overlays the JSON file named
// by -config, the environment, and finally any flags set explicitly in fs.
// fs must already be parsed and have been prepared with BindFlags; both may
// be nil when there is no command line.
func LoadConfig(fs *flag.FlagSet, f *Flags, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	var configFile string
	if f != nil {
		configFile = f.ConfigFile
	}
	if err := parseJson(cfg, configFile); err != nil {
		return nil, err
	}
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, getenv); err != nil {
		return nil, err
	}
	applyFlags(cfg, fs, f)
	return cfg, nil
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SigningSecret == "" {
		errs = append(errs, errors.New("signing secret is not set (SIGNING_SECRET)"))
	}
	if c.TokenValidity <= 0 {
		errs = append(errs, errors.New("token validity must be positive"))
	}
	if c.QuoteTTL <= 0 {
		errs = append(errs, errors.New("quote TTL must be positive"))
	}
	if c.PortfolioFanOut < 1 {
		errs = append(errs, errors.New("portfolio fan-out must be at least 1"))
	}
	if c.MaxInflight < 1 {
		errs = append(errs, errors.New("max inflight must be at least 1"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries must not be negative"))
	}
	for _, name := range c.ProviderOrder {
		if _, ok := c.ProviderLimits[name]; !ok {
			errs = append(errs, fmt.Errorf("unknown provider %q", name))
		}
	}
	return errors.Join(errs...)
}

// EnabledProviders returns the providers in preference order, skipping those
// without a key.
func (c *Config) EnabledProviders() []ProviderConfig {
	var out []ProviderConfig
	for _, name := range c.ProviderOrder {
		key := c.ProviderKeys[name]
		if key == "" {
			continue
		}
		out = append(out, ProviderConfig{Name: name, Key: key, Limit: c.ProviderLimits[name]})
	}
	return out
}

func envName(provider, suffix string) string {
	return "PROVIDER_" + strings.ToUpper(provider) + "_" + suffix
}
