package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

const (
	localRequestID = "request_id"
	localUserID    = "user_id"
	localLogger    = "logger"
)

// requestID assigns a correlation id, reusing a sane client-supplied one.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(common.RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(common.RequestIDHeader, id)
		return c.Next()
	}
}

// accessLog attaches a request-scoped logger and logs every response.
func accessLog(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqLogger := logger.With(
			"request_id", requestIDOf(c),
			"method", c.Method(),
			"path", c.Path(),
		)
		c.Locals(localLogger, reqLogger)

		err := c.Next()
		if err != nil {
			// Let the error handler set the final status before logging.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		reqLogger.Info(c.UserContext(), "request",
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
}

// rejectOrigins refuses cross-origin requests from outside the allow-list
// before they reach a handler. Requests without an Origin header pass.
func rejectOrigins(allowed []string) fiber.Handler {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[o] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" || wildcard {
			return c.Next()
		}
		if _, ok := set[origin]; !ok {
			return fiber.NewError(fiber.StatusForbidden, "origin not allowed")
		}
		return c.Next()
	}
}

func corsHandler(allowed []string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  strings.Join(allowed, ","),
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + common.RequestIDHeader,
		ExposeHeaders: common.RequestIDHeader,
		MaxAge:        600,
	})
}

// cleanOrigins trims blanks and trailing slashes and drops empties.
func cleanOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// deadline bounds the request's user context.
func deadline(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// bearerAuth resolves the Authorization header to a user id. Every failure
// is reported the same way.
func bearerAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			return common.ErrInvalidToken
		}
		userID, err := tokens.Verify(strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix)))
		if err != nil {
			return common.ErrInvalidToken
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

func userIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func requestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

func loggerOf(c *fiber.Ctx, fallback logging.Logger) logging.Logger {
	if l, ok := c.Locals(localLogger).(logging.Logger); ok {
		return l
	}
	return fallback
}
