package billing

import "time"

// Reason codes returned by subscription validation, translatable to
// user-facing messages by the API layer.
const (
	ReasonSubscriptionRequired = "SUBSCRIPTION_REQUIRED"
	ReasonTrialExpired         = "TRIAL_EXPIRED"
	ReasonSubscriptionInactive = "SUBSCRIPTION_INACTIVE"
)

// Trial and grace period policy.
const (
	TrialDays              = 30
	PaymentFailureGraceDay = 60
)

// ValidationResult is the outcome of a subscription check.
type ValidationResult struct {
	Valid              bool   `json:"valid"`
	Status             string `json:"status,omitempty"`
	TrialDaysRemaining int    `json:"trial_days_remaining,omitempty"`
	ReasonCode         string `json:"reason_code,omitempty"`
}

// SetupResult is returned by subscription initialization; the client
// secret drives the frontend card-collection flow.
type SetupResult struct {
	CustomerID   string `json:"customer_id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// InvoiceRequest carries the separately computed cost components of one
// billing period, in yen.
type InvoiceRequest struct {
	UserID      uint
	PeriodStart time.Time
	PeriodEnd   time.Time
	StorageCost float64
	RestoreCost float64
	APICost     float64
}

// Total returns the summed components.
func (r InvoiceRequest) Total() float64 {
	return r.StorageCost + r.RestoreCost + r.APICost
}
