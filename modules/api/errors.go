package api

import (
	"errors"

	"github.com/example/storefront/domain/apperror"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindInvalidInput, apperror.KindInvalidPaymentAccount, apperror.KindEmptyCart:
		return fiber.StatusBadRequest
	case apperror.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperror.KindForbidden:
		return fiber.StatusForbidden
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindInvalidState, apperror.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err with the status of its kind. Internal causes are
// logged and replaced by a generic message.
func writeError(c *fiber.Ctx, logger types.Logger, err error) error {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		logger.WithError(err).Error("Request failed", "method", c.Method(), "path", c.Path())
	}
	return c.Status(statusFor(kind)).JSON(ErrorResponse{
		Error:   string(kind),
		Message: apperror.MessageOf(err),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   string(apperror.KindInvalidInput),
		Message: message,
	})
}

// newErrorHandler handles errors returned by fiber itself, such as unknown
// routes and exhausted rate limits.
func newErrorHandler(logger types.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorResponse{
				Error:   "http_error",
				Message: fe.Message,
			})
		}
		return writeError(c, logger, err)
	}
}
