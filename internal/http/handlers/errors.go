package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"roomservice/internal/apperr"
	applog "roomservice/internal/log"
)

const genericError = "Something went wrong. Please try again."

// ErrorHandler turns handler errors into JSON responses. Typed errors keep
// their message; anything unexpected is logged and answered with a generic
// 500 so internals never reach the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Status() >= fiber.StatusInternalServerError {
		c.Status(fiber.StatusInternalServerError)
		applog.Error(c, "server.error", err, nil)
		return c.JSON(fiber.Map{"error": genericError})
	}

	c.Status(ae.Status())
	switch ae.Kind {
	case apperr.KindUnauthorized, apperr.KindForbidden:
		applog.Security(c, "access.denied", map[string]any{"reason": ae.Message})
	case apperr.KindValidation, apperr.KindInvalidField:
		applog.Security(c, "validation.fail", map[string]any{"reason": ae.Message})
	}
	return c.JSON(fiber.Map{"error": ae.Message, "kind": ae.Kind.String()})
}
