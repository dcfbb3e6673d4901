package models

import "time"

// UsageRecord holds one user's aggregated storage usage for one
// calendar day. Re-recording the same (user, day) overwrites the row.
type UsageRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index:ux_usage_records_user_day,unique,priority:1" json:"user_id"`
	Day            string    `gorm:"type:date;not null;index:ux_usage_records_user_day,unique,priority:2" json:"day"`
	StorageBytes   int64     `gorm:"type:bigint;not null;default:0" json:"storage_bytes"`
	FileCount      int64     `gorm:"type:bigint;not null;default:0" json:"file_count"`
	CalculatedCost float64   `gorm:"type:decimal(12,4);not null;default:0" json:"calculated_cost"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DayFormat is the canonical layout for UsageRecord.Day keys.
const DayFormat = "2006-01-02"
