package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/glaciervault/glaciervault/internal/pkg/billing"
	"github.com/glaciervault/glaciervault/internal/pkg/usercontext"
)

// SubscriptionChecker judges whether a user may use gated features.
type SubscriptionChecker interface {
	HasValidSubscription(userID uint) (billing.ValidationResult, error)
}

// RequireValidSubscription blocks requests without a valid subscription
// or trial, returning the structured reason code. Requests that pass
// carry the remaining trial days as response metadata. Lookup failures
// fail closed with a 500 rather than masquerading as "no subscription".
func RequireValidSubscription(checker SubscriptionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		result, err := checker.HasValidSubscription(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "subscription_check_failed",
			})
		}
		if !result.Valid {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":       "subscription_invalid",
				"reason_code": result.ReasonCode,
				"status":      result.Status,
			})
		}
		if result.TrialDaysRemaining > 0 {
			c.Set("X-Trial-Days-Remaining", strconv.Itoa(result.TrialDaysRemaining))
		}
		return c.Next()
	}
}
