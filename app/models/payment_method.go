package models

import "time"

// PaymentMethod links a user to their payment-provider customer and the
// default card on file. Card details are mirrored for display only.
type PaymentMethod struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	UserID                  uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	ProviderCustomerID      string    `gorm:"type:varchar(191);not null;index" json:"provider_customer_id"`
	ProviderPaymentMethodID string    `gorm:"type:varchar(191);default:null" json:"-"`
	CardBrand               string    `gorm:"type:varchar(32);default:null" json:"card_brand"`
	CardLast4               string    `gorm:"type:varchar(4);default:null" json:"card_last4"`
	IsDefault               bool      `gorm:"default:false" json:"is_default"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasCard reports whether a chargeable payment method is attached.
func (pm *PaymentMethod) HasCard() bool {
	return pm.ProviderPaymentMethodID != ""
}
