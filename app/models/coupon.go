package models

import (
	"time"
)

// Coupon is a locally managed discount code. DiscountPercent and
// DiscountAmount are mutually exclusive in practice; the external
// provider coupon is created lazily on first use and cached by id.
type Coupon struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Code             string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	DiscountPercent  *float64   `gorm:"type:decimal(5,2);default:null" json:"discount_percent,omitempty"`
	DiscountAmount   *int64     `gorm:"type:bigint;default:null" json:"discount_amount,omitempty"`
	ValidUntil       *time.Time `gorm:"type:timestamp;default:null" json:"valid_until,omitempty"`
	MaxUses          *int       `gorm:"type:int;default:null" json:"max_uses,omitempty"`
	CurrentUses      int        `gorm:"type:int;not null;default:0" json:"current_uses"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	ProviderCouponID string     `gorm:"type:varchar(191);default:null" json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsUsable reports whether the coupon may still be applied at the given time.
func (c *Coupon) IsUsable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return false
	}
	return true
}
