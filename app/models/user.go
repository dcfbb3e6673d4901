package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// Storage ceilings in bytes. Accounts start on the free ceiling, move to
// the base ceiling after first login and to the paid ceiling once a
// payment method is registered.
const (
	StorageLimitFree = 100 * 1024 * 1024
	StorageLimitBase = 1 * 1024 * 1024 * 1024
	StorageLimitPaid = 1024 * 1024 * 1024 * 1024
)

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email     string `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password  string `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role      string `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status    string `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	AvatarURL string `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	// OAuth linkage
	Provider       string `gorm:"type:varchar(50);default:null;index:idx_users_provider_uid" json:"-"`
	ProviderUserID string `gorm:"type:varchar(191);default:null;index:idx_users_provider_uid" json:"-"`
	// billing / storage gating
	HasPaymentMethod  bool  `gorm:"default:false" json:"has_payment_method"`
	StorageLimitBytes int64 `gorm:"type:bigint;not null;default:104857600" json:"storage_limit_bytes"`
	// payment-failure deletion schedule; set once on first failure,
	// cleared only by a later successful payment
	FirstPaymentFailedAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	ScheduledDeletionAt  *time.Time     `gorm:"type:timestamp;default:null;index" json:"-"`
	LastLoginAt          *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:              username,
		Email:             email,
		Password:          pw,
		Role:              ROLE_USER,
		Status:            STATUS_ACTIVE,
		StorageLimitBytes: StorageLimitFree,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// IsScheduledForDeletion reports whether the unpaid-account deletion clock is running.
func (u *User) IsScheduledForDeletion() bool {
	return u.ScheduledDeletionAt != nil
}
