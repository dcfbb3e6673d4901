package models

import "time"

const (
	InvoiceStatusOpen   = "open"
	InvoiceStatusPaid   = "paid"
	InvoiceStatusFailed = "failed"
)

// Invoice mirrors a payment-provider invoice for one billing period,
// split into its cost components (yen).
type Invoice struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	ProviderInvoiceID string     `gorm:"type:varchar(191);uniqueIndex" json:"provider_invoice_id"`
	PeriodStart       time.Time  `gorm:"type:datetime;not null" json:"period_start"`
	PeriodEnd         time.Time  `gorm:"type:datetime;not null" json:"period_end"`
	StorageCost       float64    `gorm:"type:decimal(12,4);not null;default:0" json:"storage_cost"`
	RestoreCost       float64    `gorm:"type:decimal(12,4);not null;default:0" json:"restore_cost"`
	APICost           float64    `gorm:"type:decimal(12,4);not null;default:0" json:"api_cost"`
	TotalAmount       float64    `gorm:"type:decimal(12,4);not null;default:0" json:"total_amount"`
	Status            string     `gorm:"type:varchar(32);not null;default:'open'" json:"status"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
