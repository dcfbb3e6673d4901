package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/glaciervault/glaciervault/internal/pkg/usage"
	"github.com/glaciervault/glaciervault/internal/pkg/usercontext"
)

// CapacityChecker rejects uploads that would exceed the account's
// storage ceiling.
type CapacityChecker interface {
	CheckStorageLimit(userID uint, incomingBytes int64) error
}

// RequireStorageCapacity gates uploads on projected post-upload usage.
// Accounts without a payment method get the free-tier message since
// their ceiling is raised by adding a card, not by deleting files.
func RequireStorageCapacity(checker CapacityChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		incoming := int64(c.Request().Header.ContentLength())
		if incoming < 0 {
			incoming = 0
		}

		if err := checker.CheckStorageLimit(userID, incoming); err != nil {
			switch {
			case errors.Is(err, usage.ErrFreeTierLimitExceeded):
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error":   "free_tier_limit_exceeded",
					"message": "free storage is full; register a payment method to raise your limit",
				})
			case errors.Is(err, usage.ErrStorageLimitExceeded):
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error":   "storage_limit_exceeded",
					"message": "storage limit reached; delete files to free up space",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "storage_check_failed",
			})
		}
		return c.Next()
	}
}
