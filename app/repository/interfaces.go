package repository

import (
	"time"

	"github.com/glaciervault/glaciervault/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByProvider(provider, providerUserID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	ListActive() ([]models.User, error)
	ListScheduledForDeletion(now time.Time) ([]models.User, error)
	MarkPaymentFailed(userID uint, failedAt, deleteAt time.Time) error
	ClearPaymentFailure(userID uint) error
	SetPaymentMethod(userID uint, hasMethod bool, storageLimit int64) error
	Count() (int64, error)
}

// PhotoRepository defines the interface for photo-related database operations
type PhotoRepository interface {
	Create(photo *models.Photo) error
	GetByID(id uint) (*models.Photo, error)
	GetByUUID(uuid string) (*models.Photo, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Photo, error)
	Update(photo *models.Photo) error
	UpdateArchiveState(id uint, state string, restoredUntil *time.Time) error
	ReplaceTags(photo *models.Photo, tagNames []string) error
	Delete(id uint) error
	CountByUserID(userID uint) (int64, error)
	SumSizeByUserID(userID uint) (int64, error)
	GetStatsByUserID(userID uint) (*PhotoStats, error)
	GetTagsByUserID(userID uint) ([]TagCount, error)
	ListExpiredRestores(now time.Time) ([]models.Photo, error)
}

// UsageRepository defines the interface for usage accounting operations
type UsageRepository interface {
	UpsertDailyRecord(record *models.UsageRecord) error
	GetRecordsByUserAndRange(userID uint, from, to string) ([]models.UsageRecord, error)
	CreateLog(log *models.UsageLog) error
	GetLogsByUserAndRange(userID uint, from, to time.Time) ([]models.UsageLog, error)
	SumLogCostByAction(userID uint, from, to time.Time) (map[string]float64, error)
}

// PhotoStats provides aggregated archive counts for a single user.
type PhotoStats struct {
	TotalPhotos   int64
	TotalBytes    int64
	CountByState  map[string]int64
	RestoredCount int64
}

// TagCount is a tag name with the number of photos carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User  UserRepository
	Photo PhotoRepository
	Usage UsageRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Photo: NewPhotoRepository(db),
		Usage: NewUsageRepository(db),
	}
}
