// Package httpx holds the fiber plumbing shared by every handler package.
package httpx

import (
	"errors"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        fiber.StatusBadRequest,
	apperr.KindNotFound:          fiber.StatusNotFound,
	apperr.KindInvalidState:      fiber.StatusConflict,
	apperr.KindInsufficientStock: fiber.StatusConflict,
	apperr.KindConflict:          fiber.StatusConflict,
	apperr.KindPersistence:       fiber.StatusServiceUnavailable,
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is installed in fiber.Config. Handlers return service errors unchanged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := StatusOf(ae.Kind)
		if ae.Kind == apperr.KindPersistence {
			config.GetLogger().WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).WithError(err).Error("storage failure")
			return c.Status(status).JSON(fiber.Map{
				"error":     "storage temporarily unavailable",
				"kind":      ae.Kind,
				"retryable": true,
			})
		}
		body := fiber.Map{"error": ae.Message, "kind": ae.Kind}
		if len(ae.Details) > 0 {
			body["details"] = ae.Details
		}
		return c.Status(status).JSON(body)
	}

	config.GetLogger().WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).WithError(err).Error("unexpected error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected server error",
	})
}
