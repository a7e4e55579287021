// Package httpapi is the JSON HTTP surface: routing, request decoding,
// authentication, CORS and the mapping of service errors to status codes.
// No business rules live here.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/moneo/internal/logging"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 10 * time.Second

// The services the handlers dispatch to.
type (
	UserService interface {
		Signup(ctx context.Context, name, email, password string) (*services.AuthResult, error)
		Login(ctx context.Context, email, password string) (*services.AuthResult, error)
		Profile(ctx context.Context, userID string) (*models.PublicUser, error)
	}

	HoldingsService interface {
		Create(ctx context.Context, userID string, in services.TradeInput) (*models.Transaction, error)
		List(ctx context.Context, userID string) ([]models.Transaction, error)
		Delete(ctx context.Context, userID, id string) error
	}

	WatchlistService interface {
		Add(ctx context.Context, userID, symbol string) ([]string, error)
		Remove(ctx context.Context, userID, symbol string) ([]string, error)
		List(ctx context.Context, userID string) ([]string, error)
	}

	PortfolioService interface {
		Value(ctx context.Context, userID string) (*models.Portfolio, error)
	}

	QuoteService interface {
		Get(ctx context.Context, symbol string) (*models.Quote, error)
	}

	// TokenVerifier resolves a bearer token to a user id.
	TokenVerifier interface {
		Verify(token string) (string, error)
	}
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Users     UserService
	Holdings  HoldingsService
	Watchlist WatchlistService
	Portfolio PortfolioService
	Quotes    QuoteService
	Tokens    TokenVerifier
}

type Options struct {
	Address        string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server serves the API over fiber.
type Server struct {
	app     *fiber.App
	address string
	logger  logging.Logger
}

func NewServer(opts Options, deps Deps, l logging.Logger) *Server {
	logger := l.With("module", "http_server")
	h := &handlers{deps: deps}

	app := fiber.New(fiber.Config{
		AppName:               "moneo",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestID())
	app.Use(accessLog(logger))
	origins := cleanOrigins(opts.AllowedOrigins)
	app.Use(rejectOrigins(origins))
	app.Use(corsHandler(origins))
	app.Use(deadline(opts.RequestTimeout))

	app.Get("/health", h.health)
	h.routes(app, bearerAuth(deps.Tokens))
	h.routes(app.Group("/api"), bearerAuth(deps.Tokens))

	return &Server{app: app, address: opts.Address, logger: logger}
}

// App exposes the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.app.Listen(s.address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	return <-errCh
}
