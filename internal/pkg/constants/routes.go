package constants

// API route paths
const (
	APIV1Prefix = "/api/v1"

	AuthRegisterPath = "/auth/register"
	AuthLoginPath    = "/auth/login"
	OAuthBeginPath   = "/auth/:provider"
	OAuthCallback    = "/auth/:provider/callback"

	PhotosPath        = "/photos"
	PhotoPath         = "/photos/:uuid"
	PhotoRestorePath  = "/photos/:uuid/restore"
	PhotoStatusPath   = "/photos/:uuid/status"
	PhotoDownloadPath = "/photos/:uuid/download"
	PhotoTagsPath     = "/photos/tags"
	UserStatsPath     = "/stats"
	UserMonthlyPath   = "/stats/monthly"
	UsageEstimatePath = "/usage/estimate"
	UsageHistoryPath  = "/usage/history"

	BillingSubscribePath     = "/billing/subscribe"
	BillingConfirmPath       = "/billing/confirm"
	BillingStatusPath        = "/billing/status"
	BillingCancelPath        = "/billing/cancel"
	BillingPaymentMethodPath = "/billing/payment-method"
	BillingCouponPath        = "/billing/coupon"
	BillingInvoicesPath      = "/billing/invoices"
	BillingWebhookPath       = "/billing/webhook"
)
