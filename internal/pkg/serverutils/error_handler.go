package serverutils

import (
	"errors"

	"genius-be/internal/dto"
	"genius-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// WriteError renders err as {success:false, code, message}. Only AppError
// and fiber errors contribute a message; anything else becomes a bare 500.
func WriteError(ctx *fiber.Ctx, err error) error {
	var appErr *dto.AppError
	if errors.As(err, &appErr) {
		return ctx.Status(appErr.Status).JSON(ErrorResponse(appErr.Status, appErr.Message))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal Error"))
}

// NewErrorHandler is installed as fiber's ErrorHandler.
func NewErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var appErr *dto.AppError
		if !errors.As(err, &appErr) || appErr.Status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
		}
		return WriteError(ctx, err)
	}
}
