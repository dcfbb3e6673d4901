package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/glaciervault/glaciervault/app/controllers"
	"github.com/glaciervault/glaciervault/internal/pkg/constants"
	"github.com/glaciervault/glaciervault/internal/pkg/middleware"
)

type ApiRouter struct {
	subscription middleware.SubscriptionChecker
	capacity     middleware.CapacityChecker
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "glaciervault api",
		})
	})

	v1 := api.Group("/v1")

	// account endpoints, no auth
	v1.Post(constants.AuthRegisterPath, controllers.HandleRegister)
	v1.Post(constants.AuthLoginPath, controllers.HandleLogin)

	// provider webhooks authenticate via signature, not JWT
	v1.Post(constants.BillingWebhookPath, controllers.HandleBillingWebhook)

	// everything below requires a valid token
	authed := v1.Group("", middleware.RequireJWT)

	// billing management stays reachable with an invalid subscription,
	// otherwise nobody could ever fix their payment state
	authed.Post(constants.BillingSubscribePath, controllers.HandleSubscribe)
	authed.Post(constants.BillingConfirmPath, controllers.HandleConfirmSubscription)
	authed.Get(constants.BillingStatusPath, controllers.HandleSubscriptionStatus)
	authed.Post(constants.BillingCancelPath, controllers.HandleCancelSubscription)
	authed.Get(constants.BillingPaymentMethodPath, controllers.HandleGetPaymentMethod)
	authed.Delete(constants.BillingPaymentMethodPath, controllers.HandleRemovePaymentMethod)
	authed.Get(constants.BillingCouponPath, controllers.HandleValidateCoupon)
	authed.Get(constants.BillingInvoicesPath, controllers.HandleListInvoices)

	// vault endpoints sit behind the subscription gate
	gated := authed.Group("", middleware.RequireValidSubscription(h.subscription))

	gated.Post(constants.PhotosPath, middleware.RequireStorageCapacity(h.capacity), controllers.HandleUploadPhoto)
	gated.Get(constants.PhotosPath, controllers.HandleListPhotos)
	gated.Get(constants.PhotoTagsPath, controllers.HandleUserTags)
	gated.Get(constants.PhotoPath, controllers.HandleGetPhoto)
	gated.Patch(constants.PhotoPath, controllers.HandleUpdatePhoto)
	gated.Delete(constants.PhotoPath, controllers.HandleDeletePhoto)
	gated.Post(constants.PhotoRestorePath, controllers.HandleRequestRestore)
	gated.Get(constants.PhotoStatusPath, controllers.HandleRestoreStatus)
	gated.Get(constants.PhotoDownloadPath, controllers.HandleDownloadPhoto)

	gated.Get(constants.UserStatsPath, controllers.HandleUserStats)
	gated.Get(constants.UserMonthlyPath, controllers.HandleMonthlyStats)
	gated.Get(constants.UsageEstimatePath, controllers.HandleUsageEstimate)
	gated.Get(constants.UsageHistoryPath, controllers.HandleUsageHistory)
}

func NewApiRouter(subscription middleware.SubscriptionChecker, capacity middleware.CapacityChecker) *ApiRouter {
	return &ApiRouter{
		subscription: subscription,
		capacity:     capacity,
	}
}
