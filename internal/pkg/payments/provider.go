package payments

import (
	"context"
	"time"
)

// CardInfo describes a chargeable payment method on file.
type CardInfo struct {
	PaymentMethodID string
	Brand           string
	Last4           string
}

// SubscriptionInfo is the provider's view of a subscription.
type SubscriptionInfo struct {
	ID                 string
	Status             string
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// InvoiceItem is a single line item of a usage invoice, amount in whole yen.
type InvoiceItem struct {
	Description string
	Amount      int64
}

// WebhookEvent is a verified, provider-neutral webhook notification.
type WebhookEvent struct {
	ID             string
	Type           string
	CustomerID     string
	SubscriptionID string
	InvoiceID      string
}

// Webhook event types the billing service reacts to.
const (
	EventPaymentSucceeded    = "invoice.payment_succeeded"
	EventPaymentFailed       = "invoice.payment_failed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Provider is the payment backend capability boundary. All identifiers
// are provider-side IDs; callers persist them but never interpret them.
type Provider interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*CardInfo, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	CreateSubscription(ctx context.Context, customerID string, trialDays int64, couponID string) (*SubscriptionInfo, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	CreateCoupon(ctx context.Context, code string, percentOff *float64, amountOff *int64) (string, error)
	CreateInvoice(ctx context.Context, customerID, description string, items []InvoiceItem) (string, error)
	ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}
