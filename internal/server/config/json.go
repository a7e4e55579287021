package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/moneo/internal/timex"
)

// JsonConfig is the on-disk shape of the optional configuration file. Only
// fields present in the file override the defaults.
type JsonConfig struct {
	ListenAddr      *string           `json:"listen_addr"`
	DatabaseDSN     *string           `json:"database_dsn"`
	TokenValidity   *timex.Duration   `json:"token_validity"`
	AllowedOrigins  []string          `json:"allowed_origins"`
	LogLevel        *string           `json:"log_level"`
	ProviderOrder   []string          `json:"provider_order"`
	ProviderKeys    map[string]string `json:"provider_keys"`
	QuoteTTL        *timex.Duration   `json:"quote_ttl"`
	UpstreamTimeout *timex.Duration   `json:"upstream_timeout"`
	RequestTimeout  *timex.Duration   `json:"request_timeout"`
	ProviderCoolOff *timex.Duration   `json:"provider_cooloff"`
	MaxRetries      *int              `json:"max_retries"`
	MaxInflight     *int              `json:"max_inflight"`
	PortfolioFanOut *int              `json:"portfolio_fanout"`
	AllowShortSell  *bool             `json:"allow_short_sell"`
	RedisAddr       *string           `json:"redis_addr"`
}

// parseJson overlays config with the file at path. An empty path is a no-op.
// The signing secret cannot be set from a file.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.Redis.Addr, c.RedisAddr)
	setDuration(&config.TokenValidity, c.TokenValidity)
	setDuration(&config.QuoteTTL, c.QuoteTTL)
	setDuration(&config.UpstreamTimeout, c.UpstreamTimeout)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setDuration(&config.ProviderCoolOff, c.ProviderCoolOff)

	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.ProviderOrder != nil {
		config.ProviderOrder = c.ProviderOrder
	}
	for name, key := range c.ProviderKeys {
		config.ProviderKeys[name] = key
	}
	if c.MaxRetries != nil {
		config.MaxRetries = *c.MaxRetries
	}
	if c.MaxInflight != nil {
		config.MaxInflight = *c.MaxInflight
	}
	if c.PortfolioFanOut != nil {
		config.PortfolioFanOut = *c.PortfolioFanOut
	}
	if c.AllowShortSell != nil {
		config.AllowShortSell = *c.AllowShortSell
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
