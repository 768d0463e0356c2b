package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/yearbook/pkg/journal"
	"github.com/papercomputeco/yearbook/pkg/media"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// fail maps a service error onto a status code. Storage rejections keep the
// remote's code and message so clients can show them verbatim.
func (s *Server) fail(c *fiber.Ctx, op string, err error) error {
	var (
		se *storage.Error
		pe *media.ProviderError
	)

	status := fiber.StatusInternalServerError
	body := ErrorResponse{Error: err.Error()}

	switch {
	case errors.Is(err, journal.ErrInvalidDraft), errors.Is(err, record.ErrInvalid):
		status = fiber.StatusBadRequest
	case errors.Is(err, media.ErrNotConfigured):
		status = fiber.StatusServiceUnavailable
	case errors.As(err, &pe):
		status = fiber.StatusBadGateway
		body = ErrorResponse{Error: pe.Description}
	case errors.Is(err, media.ErrTransport):
		status = fiber.StatusBadGateway
	case errors.As(err, &se) && se.Kind == storage.KindRejected:
		status = fiber.StatusUnprocessableEntity
		body = ErrorResponse{Error: se.Message, Code: se.Code}
	case errors.As(err, &se):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusServiceUnavailable
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error(op, "error", err, "status", status)
	} else {
		s.logger.Debug(op, "error", err, "status", status)
	}

	return c.Status(status).JSON(body)
}
