package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/coupon"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/invoice"
	"github.com/stripe/stripe-go/v81/invoiceitem"
	"github.com/stripe/stripe-go/v81/paymentmethod"
	"github.com/stripe/stripe-go/v81/setupintent"
	"github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/glaciervault/glaciervault/internal/pkg/env"
)

// StripeProvider implements Provider on top of the Stripe API.
// Amounts are whole yen; JPY is a zero-decimal currency.
type StripeProvider struct {
	priceID       string
	webhookSecret string
}

// NewStripeProvider configures the global Stripe client from the environment.
func NewStripeProvider() *StripeProvider {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
	return &StripeProvider{
		priceID:       env.GetEnv("STRIPE_PRICE_ID", ""),
		webhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	}
}

// CreateCustomer creates a Stripe customer for the user.
func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return c.ID, nil
}

// CreateSetupIntent starts the card-collection flow and returns the
// client secret for the frontend.
func (p *StripeProvider) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String("off_session"),
	}
	params.Context = ctx
	si, err := setupintent.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create setup intent: %w", err)
	}
	return si.ClientSecret, nil
}

// AttachPaymentMethod attaches the card to the customer and makes it
// the default for invoices.
func (p *StripeProvider) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*CardInfo, error) {
	attachParams := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	attachParams.Context = ctx
	pm, err := paymentmethod.Attach(paymentMethodID, attachParams)
	if err != nil {
		return nil, fmt.Errorf("failed to attach payment method: %w", err)
	}

	updateParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(pm.ID),
		},
	}
	updateParams.Context = ctx
	if _, err := customer.Update(customerID, updateParams); err != nil {
		return nil, fmt.Errorf("failed to set default payment method: %w", err)
	}

	info := &CardInfo{PaymentMethodID: pm.ID}
	if pm.Card != nil {
		info.Brand = string(pm.Card.Brand)
		info.Last4 = pm.Card.Last4
	}
	return info, nil
}

// DetachPaymentMethod removes the card from its customer.
func (p *StripeProvider) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	if _, err := paymentmethod.Detach(paymentMethodID, params); err != nil {
		return fmt.Errorf("failed to detach payment method: %w", err)
	}
	return nil
}

// CreateSubscription starts the metered subscription, optionally with a
// trial period and a provider coupon.
func (p *StripeProvider) CreateSubscription(ctx context.Context, customerID string, trialDays int64, couponID string) (*SubscriptionInfo, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(p.priceID)},
		},
	}
	params.Context = ctx
	if trialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(trialDays)
	}
	if couponID != "" {
		params.Coupon = stripe.String(couponID)
	}

	sub, err := subscription.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return subscriptionInfo(sub), nil
}

// GetSubscription fetches the subscription's current provider-side state.
func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return subscriptionInfo(sub), nil
}

// CancelSubscription cancels the subscription immediately.
func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}

// CreateCoupon mirrors a local coupon into Stripe. Exactly one of
// percentOff or amountOff should be set.
func (p *StripeProvider) CreateCoupon(ctx context.Context, code string, percentOff *float64, amountOff *int64) (string, error) {
	params := &stripe.CouponParams{
		Name:     stripe.String(code),
		Duration: stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx
	if percentOff != nil {
		params.PercentOff = stripe.Float64(*percentOff)
	} else if amountOff != nil {
		params.AmountOff = stripe.Int64(*amountOff)
		params.Currency = stripe.String(string(stripe.CurrencyJPY))
	}

	c, err := coupon.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create coupon: %w", err)
	}
	return c.ID, nil
}

// CreateInvoice creates one invoice item per line, then creates and
// finalizes a single invoice collecting them.
func (p *StripeProvider) CreateInvoice(ctx context.Context, customerID, description string, items []InvoiceItem) (string, error) {
	for _, item := range items {
		itemParams := &stripe.InvoiceItemParams{
			Customer:    stripe.String(customerID),
			Amount:      stripe.Int64(item.Amount),
			Currency:    stripe.String(string(stripe.CurrencyJPY)),
			Description: stripe.String(item.Description),
		}
		itemParams.Context = ctx
		if _, err := invoiceitem.New(itemParams); err != nil {
			return "", fmt.Errorf("failed to create invoice item: %w", err)
		}
	}

	invParams := &stripe.InvoiceParams{
		Customer:    stripe.String(customerID),
		Description: stripe.String(description),
		AutoAdvance: stripe.Bool(true),
	}
	invParams.Context = ctx
	inv, err := invoice.New(invParams)
	if err != nil {
		return "", fmt.Errorf("failed to create invoice: %w", err)
	}

	finalizeParams := &stripe.InvoiceFinalizeInvoiceParams{}
	finalizeParams.Context = ctx
	if _, err := invoice.FinalizeInvoice(inv.ID, finalizeParams); err != nil {
		return "", fmt.Errorf("failed to finalize invoice: %w", err)
	}
	return inv.ID, nil
}

// ConstructWebhookEvent verifies the signature and maps the event to
// the provider-neutral form.
func (p *StripeProvider) ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	out := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	obj := event.Data.Object
	if v, ok := obj["customer"].(string); ok {
		out.CustomerID = v
	}
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionDeleted:
		if v, ok := obj["id"].(string); ok {
			out.SubscriptionID = v
		}
	case stripe.EventTypeInvoicePaymentSucceeded, stripe.EventTypeInvoicePaymentFailed:
		if v, ok := obj["id"].(string); ok {
			out.InvoiceID = v
		}
		if v, ok := obj["subscription"].(string); ok {
			out.SubscriptionID = v
		}
	}
	return out, nil
}

func subscriptionInfo(sub *stripe.Subscription) *SubscriptionInfo {
	info := &SubscriptionInfo{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
	}
	if sub.TrialStart > 0 {
		t := time.Unix(sub.TrialStart, 0)
		info.TrialStart = &t
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0)
		info.TrialEnd = &t
	}
	return info
}
