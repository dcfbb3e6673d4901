package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/glaciervault/glaciervault/internal/pkg/billing"
	"github.com/glaciervault/glaciervault/internal/pkg/usercontext"
)

type confirmRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	CouponCode      string `json:"coupon_code"`
}

// HandleSubscribe creates or reuses the provider customer and starts
// the card-setup handshake.
func HandleSubscribe(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	result, err := billingService.InitializeSubscription(c.Context(), user.UserID)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(result)
}

// HandleConfirmSubscription attaches the collected card and starts the
// 30-day trial. A bad coupon code never blocks trial start.
func HandleConfirmSubscription(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.PaymentMethodID == "" {
		return badRequest(c, "payment_method_id is required")
	}

	sub, err := billingService.ConfirmCardAndStartTrial(c.Context(), user.UserID, req.PaymentMethodID, req.CouponCode)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(sub)
}

// HandleSubscriptionStatus reports validity, status and remaining trial days.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	result, err := billingService.HasValidSubscription(user.UserID)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(result)
}

// HandleCancelSubscription cancels upstream, then mirrors locally.
func HandleCancelSubscription(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if err := billingService.CancelSubscription(c.Context(), user.UserID); err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{"status": "canceled"})
}

// HandleGetPaymentMethod returns the card on file, if any.
func HandleGetPaymentMethod(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	pm, err := billingService.GetPaymentMethod(user.UserID)
	if err != nil {
		return billingError(c, err)
	}
	if pm == nil {
		return c.JSON(fiber.Map{"payment_method": nil})
	}
	return c.JSON(fiber.Map{"payment_method": pm})
}

// HandleRemovePaymentMethod detaches the card and lowers the storage ceiling.
func HandleRemovePaymentMethod(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if err := billingService.RemovePaymentMethod(c.Context(), user.UserID); err != nil {
		return billingError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleValidateCoupon pre-checks a coupon code without consuming a use.
func HandleValidateCoupon(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return badRequest(c, "code is required")
	}
	if err := billingService.ValidateCoupon(code); err != nil {
		return c.JSON(fiber.Map{"valid": false, "message": couponMessage(err)})
	}
	return c.JSON(fiber.Map{"valid": true})
}

// HandleListInvoices returns the caller's recent invoices.
func HandleListInvoices(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	_, limit := pagination(c)
	invoices, err := billingService.ListInvoices(user.UserID, limit)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{"invoices": invoices})
}

func billingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found", "message": "no subscription record",
		})
	case errors.Is(err, billing.ErrNoSubscription):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "no_subscription", "message": "subscription has not been set up yet",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error", "message": err.Error(),
		})
	}
}

func couponMessage(err error) string {
	switch {
	case errors.Is(err, billing.ErrCouponInactive):
		return "coupon is inactive"
	case errors.Is(err, billing.ErrCouponExpired):
		return "coupon has expired"
	case errors.Is(err, billing.ErrCouponExhausted):
		return "coupon has no uses left"
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "unknown coupon code"
	default:
		return "coupon could not be validated"
	}
}
