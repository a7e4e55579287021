// Package server assembles the application: it opens the stores, builds the
// quote layer and the domain services, and runs the HTTP API until the
// process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/moneo/internal/logging"
	"github.com/dmitrijs2005/moneo/internal/server/auth"
	"github.com/dmitrijs2005/moneo/internal/server/config"
	"github.com/dmitrijs2005/moneo/internal/server/httpapi"
	"github.com/dmitrijs2005/moneo/internal/server/quotes"
	"github.com/dmitrijs2005/moneo/internal/server/quotes/providers"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/moneo/internal/server/services"
	"github.com/go-redis/redis/v8"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	redis  *redis.Client
	quotes *quotes.Service
	server *httpapi.Server
}

// NewLogger builds the JSON logger at the configured level; unknown levels
// fall back to info.
func NewLogger(w io.Writer, level string) logging.Logger {
	l, _ := logging.ParseLevel(level)
	return logging.NewJSONLogger(w, l)
}

// OpenRepositories connects to PostgreSQL when a DSN is configured and falls
// back to in-memory stores otherwise.
func OpenRepositories(ctx context.Context, cfg *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn(ctx, "DB_URI is not set, using in-memory stores; data is lost on restart")
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return repomanager.NewPostgresRepositoryManager(db), nil
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	repos, err := OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: cfg, logger: logger, repos: repos}

	qs, err := app.newQuoteService(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.quotes = qs

	issuer, err := auth.NewTokenIssuer(cfg.SigningSecret, cfg.TokenValidity)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.server = httpapi.NewServer(httpapi.Options{
		Address:        cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}, httpapi.Deps{
		Users: services.NewUserService(repos, auth.NewPasswordHasher(cfg.BcryptCost), issuer),
		Holdings: services.NewHoldingsService(repos, qs, services.HoldingsOptions{
			AllowShortSell: cfg.AllowShortSell,
			RefetchPrice:   cfg.RefetchTradePrice,
		}),
		Watchlist: services.NewWatchlistService(repos),
		Portfolio: services.NewPortfolioService(repos, qs, cfg.PortfolioFanOut, logger),
		Quotes:    qs,
		Tokens:    issuer,
	}, logger)

	return app, nil
}

// newQuoteService registers the keyed providers in preference order and, when
// configured, the Redis second-level cache.
func (app *App) newQuoteService(ctx context.Context) (*quotes.Service, error) {
	cfg := app.config

	client := providers.DefaultClient()
	var ups []quotes.Upstream
	for _, pc := range cfg.EnabledProviders() {
		p, err := providers.New(pc.Name, pc.Key, client)
		if err != nil {
			return nil, err
		}
		ups = append(ups, quotes.NewUpstream(p, pc.Limit.PerSecond, pc.Limit.Burst))
		app.logger.Info(ctx, "quote provider enabled", "provider", pc.Name,
			"per_second", pc.Limit.PerSecond, "burst", pc.Limit.Burst)
	}
	if len(ups) == 0 {
		app.logger.Warn(ctx, "no quote provider has an API key; quote requests will fail")
	}

	options := []quotes.Option{quotes.WithLogger(app.logger.With("module", "quotes"))}
	if cfg.Redis.Addr != "" {
		rc, err := quotes.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.logger.Warn(ctx, "shared quote cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			app.redis = rc
			options = append(options, quotes.WithSharedCache(quotes.NewRedisCache(rc)))
		}
	}

	return quotes.NewService(quotes.Options{
		TTL:             cfg.QuoteTTL,
		UpstreamTimeout: cfg.UpstreamTimeout,
		FetchTimeout:    cfg.RequestTimeout,
		CoolOff:         cfg.ProviderCoolOff,
		RetryBackoff:    cfg.RetryBackoff,
		MaxRetries:      cfg.MaxRetries,
		MaxInflight:     cfg.MaxInflight,
	}, ups, options...), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
	return err
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases every resource.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Stopping app...")
	return errors.Join(runErr, app.Close())
}

// Close stops the quote layer and closes the cache and the stores.
func (app *App) Close() error {
	if app.quotes != nil {
		app.quotes.Close()
	}
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.repos != nil {
		errs = append(errs, app.repos.Close())
	}
	return errors.Join(errs...)
}

// Migrate applies the embedded schema migrations and exits.
func Migrate(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	if cfg.DatabaseDSN == "" {
		return errors.New("DB_URI is required to run migrations")
	}
	repos, err := OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer repos.Close()

	if err := repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	logger.Info(ctx, "migrations applied")
	return nil
}
