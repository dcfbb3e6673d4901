package models

import "time"

// Subscription statuses. Transitions are driven only by explicit user
// actions and payment-provider webhook events, never guessed from
// client input.
const (
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
)

// Subscription mirrors the payment provider's subscription state for a
// user. At most one record exists per user.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	ProviderCustomerID   string     `gorm:"type:varchar(191);index" json:"provider_customer_id"`
	ProviderSubscription string     `gorm:"column:provider_subscription_id;type:varchar(191);index" json:"provider_subscription_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'incomplete'" json:"status"`
	TrialStart           *time.Time `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd             *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CanceledAt           *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsCanceled reports whether the subscription has reached its terminal state.
func (s *Subscription) IsCanceled() bool {
	return s.Status == SubscriptionStatusCanceled
}
