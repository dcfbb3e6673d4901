package models

import "time"

const (
	UsageActionUpload   = "upload"
	UsageActionRestore  = "restore"
	UsageActionDownload = "download"
)

// UsageLog records one metered API action (upload, restore, download)
// with its computed cost in yen.
type UsageLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index:idx_usage_logs_user_created,priority:1" json:"user_id"`
	ActionType       string    `gorm:"type:varchar(32);not null;index" json:"action_type"`
	BytesTransferred int64     `gorm:"type:bigint;not null;default:0" json:"bytes_transferred"`
	FileCount        int       `gorm:"type:int;not null;default:1" json:"file_count"`
	Cost             float64   `gorm:"type:decimal(12,4);not null;default:0" json:"cost"`
	Detail           string    `gorm:"type:varchar(255);default:null" json:"detail,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index:idx_usage_logs_user_created,priority:2" json:"created_at"`
}
