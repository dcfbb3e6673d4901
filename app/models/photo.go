package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Archive states a stored object moves through during cold-storage
// archival and retrieval.
const (
	ArchiveStateArchived         = "ARCHIVED"
	ArchiveStateRestoreRequested = "RESTORE_REQUESTED"
	ArchiveStateRestoring        = "RESTORING"
	ArchiveStateRestored         = "RESTORED"
	ArchiveStateFailed           = "FAILED"
)

type Photo struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UUID        string `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	UserID      uint   `gorm:"index;not null" json:"user_id"`
	User        User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title       string `gorm:"type:varchar(255)" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	StorageKey  string `gorm:"type:varchar(512);not null" json:"storage_key"`
	FileName    string `gorm:"type:varchar(255);not null" json:"file_name"`
	FileSize    int64  `gorm:"type:bigint" json:"file_size"`
	MimeType    string `gorm:"type:varchar(100)" json:"mime_type"`
	// archival lifecycle
	ArchiveState  string     `gorm:"type:varchar(32);not null;default:'ARCHIVED';index" json:"archive_state"`
	RestoredUntil *time.Time `gorm:"type:datetime;default:null" json:"restored_until,omitempty"`
	RestoreCount  int64      `gorm:"type:bigint;not null;default:0" json:"restore_count"`
	DownloadCount int64      `gorm:"type:bigint;not null;default:0" json:"download_count"`
	// relations
	Tags      []Tag          `gorm:"many2many:photo_tags;" json:"tags,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"uploaded_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID if none is set yet
func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	return nil
}

// IsRestored reports whether the photo is currently retrievable.
func (p *Photo) IsRestored() bool {
	return p.ArchiveState == ArchiveStateRestored
}

// IsRestorePending reports whether a restore has been requested or is running.
func (p *Photo) IsRestorePending() bool {
	return p.ArchiveState == ArchiveStateRestoreRequested || p.ArchiveState == ArchiveStateRestoring
}

// FindPhotoByUUID finds a photo by its UUID
func FindPhotoByUUID(db *gorm.DB, uuid string) (*Photo, error) {
	var photo Photo
	result := db.Preload("Tags").Where("uuid = ?", uuid).First(&photo)
	return &photo, result.Error
}
