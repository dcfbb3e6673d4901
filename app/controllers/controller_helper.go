package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/glaciervault/glaciervault/internal/pkg/archive"
	"github.com/glaciervault/glaciervault/internal/pkg/billing"
	"github.com/glaciervault/glaciervault/internal/pkg/payments"
	"github.com/glaciervault/glaciervault/internal/pkg/usage"
)

// Shared service instances, wired once at startup.
var (
	archiveService  *archive.Service
	billingService  *billing.Service
	usageTracker    *usage.Tracker
	paymentProvider payments.Provider
)

// Initialize wires the controller layer's service dependencies.
func Initialize(a *archive.Service, b *billing.Service, t *usage.Tracker, p payments.Provider) {
	archiveService = a
	billingService = b
	usageTracker = t
	paymentProvider = p
}

// pagination reads offset/limit query params with sane bounds.
func pagination(c *fiber.Ctx) (int, int) {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}

// photoError maps lifecycle errors to HTTP responses without leaking
// whether a foreign photo exists.
func photoError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, archive.ErrNotOwner):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found", "message": "photo not found",
		})
	case errors.Is(err, archive.ErrNotRestored):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "not_restored",
			"message": "object is not restored yet, request a restore first",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error", "message": err.Error(),
		})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "bad_request", "message": msg,
	})
}
