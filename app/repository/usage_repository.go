package repository

import (
	"time"

	"github.com/glaciervault/glaciervault/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// usageRepository implements the UsageRepository interface
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// UpsertDailyRecord inserts the record or overwrites the existing row
// for the same (user, day) pair.
func (r *usageRepository) UpsertDailyRecord(record *models.UsageRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"storage_bytes", "file_count", "calculated_cost", "updated_at",
		}),
	}).Create(record).Error
}

// GetRecordsByUserAndRange retrieves daily records for [from, to] inclusive
func (r *usageRepository) GetRecordsByUserAndRange(userID uint, from, to string) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	err := r.db.Where("user_id = ? AND day >= ? AND day <= ?", userID, from, to).
		Order("day ASC").
		Find(&records).Error
	return records, err
}

// CreateLog records a single metered action
func (r *usageRepository) CreateLog(log *models.UsageLog) error {
	return r.db.Create(log).Error
}

// GetLogsByUserAndRange retrieves action logs for [from, to)
func (r *usageRepository) GetLogsByUserAndRange(userID uint, from, to time.Time) ([]models.UsageLog, error) {
	var logs []models.UsageLog
	err := r.db.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// SumLogCostByAction sums log costs per action type for [from, to)
func (r *usageRepository) SumLogCostByAction(userID uint, from, to time.Time) (map[string]float64, error) {
	type row struct {
		ActionType string
		Total      float64
	}
	var rows []row
	err := r.db.Model(&models.UsageLog{}).
		Select("action_type, COALESCE(SUM(cost), 0) as total").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Group("action_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]float64, len(rows))
	for _, r := range rows {
		sums[r.ActionType] = r.Total
	}
	return sums, nil
}
