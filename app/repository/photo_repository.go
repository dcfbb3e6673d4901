package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/internal/pkg/cache"
	"gorm.io/gorm"
)

const photoCacheTTL = 5 * time.Minute

// photoRepository implements the PhotoRepository interface
type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new photo repository instance
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func photoCacheKey(uuid string) string {
	return fmt.Sprintf("photo:uuid:%s", uuid)
}

// Create creates a new photo in the database
func (r *photoRepository) Create(photo *models.Photo) error {
	return r.db.Create(photo).Error
}

// GetByID retrieves a photo by its ID
func (r *photoRepository) GetByID(id uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.Preload("Tags").First(&photo, id).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// GetByUUID retrieves a photo by its UUID, with a short-lived cache
// in front of the database.
func (r *photoRepository) GetByUUID(uuid string) (*models.Photo, error) {
	if cached, err := cache.Get(photoCacheKey(uuid)); err == nil && cached != "" {
		var photo models.Photo
		if err := json.Unmarshal([]byte(cached), &photo); err == nil {
			return &photo, nil
		}
	}

	var photo models.Photo
	err := r.db.Preload("Tags").Where("uuid = ?", uuid).First(&photo).Error
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(&photo); err == nil {
		_ = cache.Set(photoCacheKey(uuid), string(data), photoCacheTTL)
	}
	return &photo, nil
}

// GetByUserID retrieves a paginated list of a user's photos
func (r *photoRepository) GetByUserID(userID uint, offset, limit int) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.Preload("Tags").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&photos).Error
	return photos, err
}

// Update updates an existing photo in the database
func (r *photoRepository) Update(photo *models.Photo) error {
	if err := r.db.Save(photo).Error; err != nil {
		return err
	}
	_ = cache.Delete(photoCacheKey(photo.UUID))
	return nil
}

// UpdateArchiveState transitions a photo's archive state and restore expiry
func (r *photoRepository) UpdateArchiveState(id uint, state string, restoredUntil *time.Time) error {
	var photo models.Photo
	if err := r.db.Select("uuid").First(&photo, id).Error; err != nil {
		return err
	}
	err := r.db.Model(&models.Photo{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"archive_state":  state,
			"restored_until": restoredUntil,
		}).Error
	if err != nil {
		return err
	}
	_ = cache.Delete(photoCacheKey(photo.UUID))
	return nil
}

// ReplaceTags swaps a photo's tag set for the given names inside one
// transaction, creating tags that do not exist yet.
func (r *photoRepository) ReplaceTags(photo *models.Photo, tagNames []string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		tags := make([]models.Tag, 0, len(tagNames))
		for _, name := range tagNames {
			var tag models.Tag
			if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		if err := tx.Model(photo).Association("Tags").Replace(tags); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = cache.Delete(photoCacheKey(photo.UUID))
	return nil
}

// Delete soft deletes a photo by its ID
func (r *photoRepository) Delete(id uint) error {
	var photo models.Photo
	if err := r.db.Select("uuid").First(&photo, id).Error; err != nil {
		return err
	}
	if err := r.db.Delete(&models.Photo{}, id).Error; err != nil {
		return err
	}
	_ = cache.Delete(photoCacheKey(photo.UUID))
	return nil
}

// CountByUserID returns the number of photos a user has stored
func (r *photoRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Photo{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// SumSizeByUserID returns the total archived bytes for a user
func (r *photoRepository) SumSizeByUserID(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.Photo{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&total).Error
	return total, err
}

// GetStatsByUserID returns aggregate archive statistics for a user
func (r *photoRepository) GetStatsByUserID(userID uint) (*PhotoStats, error) {
	stats := &PhotoStats{CountByState: make(map[string]int64)}

	if err := r.db.Model(&models.Photo{}).Where("user_id = ?", userID).Count(&stats.TotalPhotos).Error; err != nil {
		return nil, err
	}

	total, err := r.SumSizeByUserID(userID)
	if err != nil {
		return nil, err
	}
	stats.TotalBytes = total

	type stateRow struct {
		ArchiveState string
		Count        int64
	}
	var rows []stateRow
	err = r.db.Model(&models.Photo{}).
		Where("user_id = ?", userID).
		Select("archive_state, COUNT(*) as count").
		Group("archive_state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.CountByState[row.ArchiveState] = row.Count
		if row.ArchiveState == models.ArchiveStateRestored {
			stats.RestoredCount = row.Count
		}
	}
	return stats, nil
}

// GetTagsByUserID returns the user's tags with per-tag photo counts
func (r *photoRepository) GetTagsByUserID(userID uint) ([]TagCount, error) {
	var tags []TagCount
	err := r.db.Model(&models.Tag{}).
		Select("tags.name, COUNT(photo_tags.photo_id) as count").
		Joins("JOIN photo_tags ON photo_tags.tag_id = tags.id").
		Joins("JOIN photos ON photos.id = photo_tags.photo_id AND photos.deleted_at IS NULL").
		Where("photos.user_id = ?", userID).
		Group("tags.name").
		Order("count DESC, tags.name ASC").
		Scan(&tags).Error
	return tags, err
}

// ListExpiredRestores returns photos whose restored copy has lapsed
func (r *photoRepository) ListExpiredRestores(now time.Time) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.Where("archive_state = ? AND restored_until IS NOT NULL AND restored_until <= ?",
		models.ArchiveStateRestored, now).
		Find(&photos).Error
	return photos, err
}
