package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/logging"
	"github.com/gofiber/fiber/v2"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusMapping is checked in order; the first kind err matches wins.
// detail keeps the part of the message after the kind for the client.
var statusMapping = []struct {
	kind   error
	status int
	detail bool
}{
	{common.ErrUnauthenticated, fiber.StatusUnauthorized, false},
	{common.ErrForbidden, fiber.StatusForbidden, false},
	{common.ErrValidation, fiber.StatusBadRequest, true},
	{common.ErrConflict, fiber.StatusConflict, true},
	{common.ErrNotFound, fiber.StatusNotFound, false},
	{common.ErrSymbolUnknown, fiber.StatusNotFound, false},
	{common.ErrQuoteUnavailable, fiber.StatusServiceUnavailable, false},
	{common.ErrRequestTimeout, fiber.StatusGatewayTimeout, false},
	{context.DeadlineExceeded, fiber.StatusGatewayTimeout, false},
	{common.ErrOverCapacity, fiber.StatusServiceUnavailable, false},
}

// statusFor maps err to a status code and a client-safe message. Unknown
// errors map to 500 with a generic message.
func statusFor(err error) (int, string) {
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code, ferr.Message
	}
	for _, m := range statusMapping {
		if !errors.Is(err, m.kind) {
			continue
		}
		msg := m.kind.Error()
		if m.kind == context.DeadlineExceeded {
			msg = common.ErrRequestTimeout.Error()
		}
		if m.detail {
			msg = detailOf(err, m.kind)
		}
		return m.status, msg
	}
	return fiber.StatusInternalServerError, common.ErrInternal.Error()
}

// detailOf strips the "<kind>: " prefix that wrapping adds.
func detailOf(err, kind error) string {
	msg := err.Error()
	if i := strings.Index(msg, kind.Error()+": "); i >= 0 {
		return msg[i+len(kind.Error())+2:]
	}
	return msg
}

func errorHandler(logger logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, msg := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			loggerOf(c, logger).Error(c.UserContext(), "request failed",
				"request_id", requestIDOf(c),
				"status", status,
				"error", err,
			)
		}
		return c.Status(status).JSON(errorResponse{Error: msg, RequestID: requestIDOf(c)})
	}
}
