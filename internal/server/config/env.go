package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/dmitrijs2005/moneo/internal/flagx"
	"github.com/joho/godotenv"
)

// dotEnvFile is read from the working directory when present. Variables
// already set in the process environment win.
var dotEnvFile = ".env"

func loadDotEnv() error {
	err := godotenv.Load(dotEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	return nil
}

// parseEnv overlays config with environment variables:
//
//	PORT                         listen port (":PORT")
//	DB_URI                       Postgres DSN
//	SIGNING_SECRET               token signing secret
//	TOKEN_VALIDITY               token lifetime (duration)
//	ALLOWED_ORIGINS              comma-separated CORS allow-list
//	LOG_LEVEL                    debug|info|warn|error
//	PROVIDER_ORDER               comma-separated provider preference
//	PROVIDER_<NAME>_KEY          provider credential
//	PROVIDER_<NAME>_RATE/_BURST  provider token bucket
//	QUOTE_TTL, UPSTREAM_TIMEOUT, REQUEST_TIMEOUT, PROVIDER_COOLOFF, QUOTE_RETRY_BACKOFF
//	QUOTE_MAX_RETRIES, QUOTE_MAX_INFLIGHT, PORTFOLIO_FANOUT, BCRYPT_COST
//	ALLOW_SHORT_SELL, REFETCH_TRADE_PRICE
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
func parseEnv(config *Config, getenv func(string) string) error {
	e := envReader{getenv: getenv}

	if port := getenv("PORT"); port != "" {
		config.ListenAddr = ":" + port
	}
	e.str("DB_URI", &config.DatabaseDSN)
	e.str("SIGNING_SECRET", &config.SigningSecret)
	e.str("LOG_LEVEL", &config.LogLevel)
	e.list("ALLOWED_ORIGINS", &config.AllowedOrigins)
	e.list("PROVIDER_ORDER", &config.ProviderOrder)

	for _, name := range []string{ProviderFinnhub, ProviderEODHD} {
		if key := getenv(envName(name, "KEY")); key != "" {
			config.ProviderKeys[name] = key
		}
		limit := config.ProviderLimits[name]
		e.float(envName(name, "RATE"), &limit.PerSecond)
		e.int(envName(name, "BURST"), &limit.Burst)
		config.ProviderLimits[name] = limit
	}

	e.duration("TOKEN_VALIDITY", &config.TokenValidity)
	e.duration("QUOTE_TTL", &config.QuoteTTL)
	e.duration("UPSTREAM_TIMEOUT", &config.UpstreamTimeout)
	e.duration("REQUEST_TIMEOUT", &config.RequestTimeout)
	e.duration("PROVIDER_COOLOFF", &config.ProviderCoolOff)
	e.duration("QUOTE_RETRY_BACKOFF", &config.RetryBackoff)
	e.int("QUOTE_MAX_RETRIES", &config.MaxRetries)
	e.int("QUOTE_MAX_INFLIGHT", &config.MaxInflight)
	e.int("PORTFOLIO_FANOUT", &config.PortfolioFanOut)
	e.int("BCRYPT_COST", &config.BcryptCost)
	e.bool("ALLOW_SHORT_SELL", &config.AllowShortSell)
	e.bool("REFETCH_TRADE_PRICE", &config.RefetchTradePrice)

	e.str("REDIS_ADDR", &config.Redis.Addr)
	e.str("REDIS_PASSWORD", &config.Redis.Password)
	e.int("REDIS_DB", &config.Redis.DB)

	return errors.Join(e.errs...)
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(name string, dst *string) {
	if v := e.getenv(name); v != "" {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	if v := e.getenv(name); v != "" {
		*dst = flagx.SplitList(v)
	}
}

func (e *envReader) int(name string, dst *int) {
	v := e.getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = n
}

func (e *envReader) float(name string, dst *float64) {
	v := e.getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = f
}

func (e *envReader) bool(name string, dst *bool) {
	v := e.getenv(name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = b
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v := e.getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = d
}
