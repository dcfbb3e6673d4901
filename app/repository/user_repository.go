package repository

import (
	"time"

	"github.com/glaciervault/glaciervault/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByProvider retrieves a user by their OAuth provider identity
func (r *userRepository) GetByProvider(provider, providerUserID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete soft deletes a user by their ID
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// ListActive retrieves all users with an active account status
func (r *userRepository) ListActive() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("status = ?", models.STATUS_ACTIVE).Find(&users).Error
	return users, err
}

// ListScheduledForDeletion retrieves users whose deletion deadline has passed
func (r *userRepository) ListScheduledForDeletion(now time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("scheduled_deletion_at IS NOT NULL AND scheduled_deletion_at <= ?", now).Find(&users).Error
	return users, err
}

// MarkPaymentFailed records the first payment failure and the resulting
// deletion deadline. A later failure never moves an existing deadline.
func (r *userRepository) MarkPaymentFailed(userID uint, failedAt, deleteAt time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ? AND first_payment_failed_at IS NULL", userID).
		Updates(map[string]interface{}{
			"first_payment_failed_at": failedAt,
			"scheduled_deletion_at":   deleteAt,
		}).Error
}

// ClearPaymentFailure removes the failure marker and deletion deadline
func (r *userRepository) ClearPaymentFailure(userID uint) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"first_payment_failed_at": nil,
			"scheduled_deletion_at":   nil,
		}).Error
}

// SetPaymentMethod flips the payment-method flag and adjusts the storage ceiling
func (r *userRepository) SetPaymentMethod(userID uint, hasMethod bool, storageLimit int64) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"has_payment_method":  hasMethod,
			"storage_limit_bytes": storageLimit,
		}).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
