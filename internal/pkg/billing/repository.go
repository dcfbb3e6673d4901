package billing

import (
	"strings"
	"time"

	"github.com/glaciervault/glaciervault/app/models"
	"gorm.io/gorm"
)

// Repository is the persistence boundary of the billing service.
type Repository interface {
	GetSubscriptionByUserID(userID uint) (*models.Subscription, error)
	GetSubscriptionByCustomerID(customerID string) (*models.Subscription, error)
	GetSubscriptionByProviderID(subscriptionID string) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error

	GetPaymentMethodByUserID(userID uint) (*models.PaymentMethod, error)
	SavePaymentMethod(pm *models.PaymentMethod) error
	DeletePaymentMethod(userID uint) error

	GetCouponByCode(code string) (*models.Coupon, error)
	SaveCoupon(coupon *models.Coupon) error
	IncrementCouponUses(couponID uint) error

	CreateInvoice(invoice *models.Invoice) error
	GetInvoicesByUserID(userID uint, limit int) ([]models.Invoice, error)
	MarkInvoicePaid(providerInvoiceID string, paidAt time.Time) error
	MarkInvoiceFailed(providerInvoiceID string) error
}

// gormRepository implements Repository with GORM.
type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a GORM-backed billing repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetSubscriptionByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByCustomerID(customerID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("provider_customer_id = ?", customerID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByProviderID(subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("provider_subscription_id = ?", subscriptionID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) GetPaymentMethodByUserID(userID uint) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := r.db.Where("user_id = ?", userID).First(&pm).Error; err != nil {
		return nil, err
	}
	return &pm, nil
}

func (r *gormRepository) SavePaymentMethod(pm *models.PaymentMethod) error {
	return r.db.Save(pm).Error
}

func (r *gormRepository) DeletePaymentMethod(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.PaymentMethod{}).Error
}

func (r *gormRepository) GetCouponByCode(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := r.db.Where("code = ?", normalized).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *gormRepository) SaveCoupon(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

func (r *gormRepository) IncrementCouponUses(couponID uint) error {
	return r.db.Model(&models.Coupon{}).
		Where("id = ?", couponID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1")).Error
}

func (r *gormRepository) CreateInvoice(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

func (r *gormRepository) GetInvoicesByUserID(userID uint, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("user_id = ?", userID).
		Order("period_start DESC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

func (r *gormRepository) MarkInvoicePaid(providerInvoiceID string, paidAt time.Time) error {
	return r.db.Model(&models.Invoice{}).
		Where("provider_invoice_id = ?", providerInvoiceID).
		Updates(map[string]interface{}{
			"status":  models.InvoiceStatusPaid,
			"paid_at": paidAt,
		}).Error
}

func (r *gormRepository) MarkInvoiceFailed(providerInvoiceID string) error {
	return r.db.Model(&models.Invoice{}).
		Where("provider_invoice_id = ?", providerInvoiceID).
		Update("status", models.InvoiceStatusFailed).Error
}
