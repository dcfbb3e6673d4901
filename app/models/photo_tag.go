package models

// PhotoTag is the join table between photos and tags
type PhotoTag struct {
	PhotoID uint `gorm:"primaryKey" json:"photo_id"`
	TagID   uint `gorm:"primaryKey" json:"tag_id"`
}
