package billing

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/app/repository"
	"github.com/glaciervault/glaciervault/internal/pkg/payments"
)

// ErrNoSubscription is returned when an operation requires an existing
// external subscription and none has been created yet.
var ErrNoSubscription = errors.New("no active subscription reference")

// Service owns the subscription lifecycle and drives the payment provider.
type Service struct {
	repo     Repository
	users    repository.UserRepository
	provider payments.Provider
	now      func() time.Time
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, users repository.UserRepository, provider payments.Provider) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		provider: provider,
		now:      time.Now,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, users repository.UserRepository, provider payments.Provider) *Service {
	return NewService(NewRepository(db), users, provider)
}

// InitializeSubscription makes sure the user has a provider customer and
// a local subscription record, then issues a fresh card-setup handshake.
// Calling it again for the same user reuses the existing customer.
func (s *Service) InitializeSubscription(ctx context.Context, userID uint) (*SetupResult, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetSubscriptionByUserID(userID)
	switch {
	case err == nil && sub.ProviderCustomerID != "":
		// existing customer, just restart the setup handshake
	case err == nil:
		if err := s.attachCustomer(ctx, sub, user); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = &models.Subscription{
			UserID: userID,
			Status: models.SubscriptionStatusIncomplete,
		}
		if err := s.attachCustomer(ctx, sub, user); err != nil {
			return nil, err
		}
		if err := s.repo.CreateSubscription(sub); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	secret, err := s.provider.CreateSetupIntent(ctx, sub.ProviderCustomerID)
	if err != nil {
		return nil, err
	}
	return &SetupResult{
		CustomerID:   sub.ProviderCustomerID,
		ClientSecret: secret,
		Status:       sub.Status,
	}, nil
}

func (s *Service) attachCustomer(ctx context.Context, sub *models.Subscription, user *models.User) error {
	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return err
	}
	sub.ProviderCustomerID = customerID
	if sub.ID != 0 {
		return s.repo.SaveSubscription(sub)
	}
	return nil
}

// ConfirmCardAndStartTrial attaches the collected payment method, applies
// an optional coupon and starts the 30-day trial. A bad coupon code is
// ignored rather than failing the whole operation.
func (s *Service) ConfirmCardAndStartTrial(ctx context.Context, userID uint, paymentMethodRef, couponCode string) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil {
		return nil, err
	}
	if sub.ProviderCustomerID == "" {
		return nil, ErrNoSubscription
	}

	card, err := s.provider.AttachPaymentMethod(ctx, sub.ProviderCustomerID, paymentMethodRef)
	if err != nil {
		return nil, err
	}
	if err := s.savePaymentMethod(userID, sub.ProviderCustomerID, card); err != nil {
		return nil, err
	}

	providerCouponID := ""
	if couponCode != "" {
		id, err := s.applyCoupon(ctx, couponCode)
		if err != nil {
			// never block trial start on a bad coupon
			log.Infof("[Billing] Ignoring coupon %q for user %d: %v", couponCode, userID, err)
		} else {
			providerCouponID = id
		}
	}

	info, err := s.provider.CreateSubscription(ctx, sub.ProviderCustomerID, TrialDays, providerCouponID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	trialEnd := now.Add(TrialDays * 24 * time.Hour)
	sub.ProviderSubscription = info.ID
	sub.Status = models.SubscriptionStatusTrialing
	sub.TrialStart = &now
	sub.TrialEnd = &trialEnd
	sub.CurrentPeriodStart = &now
	sub.CurrentPeriodEnd = &trialEnd
	if info.TrialStart != nil && info.TrialEnd != nil {
		sub.TrialStart = info.TrialStart
		sub.TrialEnd = info.TrialEnd
		sub.CurrentPeriodStart = info.TrialStart
		sub.CurrentPeriodEnd = info.TrialEnd
	}
	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) savePaymentMethod(userID uint, customerID string, card *payments.CardInfo) error {
	pm, err := s.repo.GetPaymentMethodByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pm = &models.PaymentMethod{UserID: userID}
	} else if err != nil {
		return err
	}
	pm.ProviderCustomerID = customerID
	pm.ProviderPaymentMethodID = card.PaymentMethodID
	pm.CardBrand = card.Brand
	pm.CardLast4 = card.Last4
	pm.IsDefault = true
	if err := s.repo.SavePaymentMethod(pm); err != nil {
		return err
	}
	return s.users.SetPaymentMethod(userID, true, models.StorageLimitPaid)
}

// RemovePaymentMethod detaches the card upstream, deletes the local
// record and drops the user back to the base storage ceiling.
func (s *Service) RemovePaymentMethod(ctx context.Context, userID uint) error {
	pm, err := s.repo.GetPaymentMethodByUserID(userID)
	if err != nil {
		return err
	}
	if pm.HasCard() {
		if err := s.provider.DetachPaymentMethod(ctx, pm.ProviderPaymentMethodID); err != nil {
			return err
		}
	}
	if err := s.repo.DeletePaymentMethod(userID); err != nil {
		return err
	}
	return s.users.SetPaymentMethod(userID, false, models.StorageLimitBase)
}

// GetPaymentMethod returns the user's card on file, or nil if none.
func (s *Service) GetPaymentMethod(userID uint) (*models.PaymentMethod, error) {
	pm, err := s.repo.GetPaymentMethodByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return pm, err
}

// HasValidSubscription judges the user's access at read time. A trial
// past its end date is reported invalid here even though the stored
// status still says trialing; the webhook flow flips it later. Only a
// genuinely missing record means SUBSCRIPTION_REQUIRED; other lookup
// failures are surfaced as errors.
func (s *Service) HasValidSubscription(userID uint) (ValidationResult, error) {
	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ValidationResult{Valid: false, ReasonCode: ReasonSubscriptionRequired}, nil
	}
	if err != nil {
		return ValidationResult{}, err
	}

	switch sub.Status {
	case models.SubscriptionStatusTrialing:
		now := s.now()
		if sub.TrialEnd == nil || now.After(*sub.TrialEnd) {
			return ValidationResult{Valid: false, Status: sub.Status, ReasonCode: ReasonTrialExpired}, nil
		}
		remaining := int(math.Ceil(sub.TrialEnd.Sub(now).Hours() / 24))
		return ValidationResult{Valid: true, Status: sub.Status, TrialDaysRemaining: remaining}, nil
	case models.SubscriptionStatusActive:
		return ValidationResult{Valid: true, Status: sub.Status}, nil
	default:
		return ValidationResult{Valid: false, Status: sub.Status, ReasonCode: ReasonSubscriptionInactive}, nil
	}
}

// GetSubscription returns the user's local subscription record, or nil.
func (s *Service) GetSubscription(userID uint) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return sub, err
}

// HandlePaymentSuccess reacts to a paid invoice: the subscription goes
// active, period bounds are refreshed from the provider, and any
// pending deletion clock on the user is stopped.
func (s *Service) HandlePaymentSuccess(ctx context.Context, customerRef, subscriptionRef, invoiceRef string) error {
	sub, err := s.repo.GetSubscriptionByCustomerID(customerRef)
	if err != nil {
		return err
	}

	sub.Status = models.SubscriptionStatusActive
	if subscriptionRef != "" {
		sub.ProviderSubscription = subscriptionRef
		if info, err := s.provider.GetSubscription(ctx, subscriptionRef); err == nil {
			sub.CurrentPeriodStart = &info.CurrentPeriodStart
			sub.CurrentPeriodEnd = &info.CurrentPeriodEnd
		} else {
			log.Warnf("[Billing] Could not refresh period bounds for %s: %v", subscriptionRef, err)
		}
	}
	if err := s.repo.SaveSubscription(sub); err != nil {
		return err
	}

	if invoiceRef != "" {
		if err := s.repo.MarkInvoicePaid(invoiceRef, s.now()); err != nil {
			log.Warnf("[Billing] Could not mark invoice %s paid: %v", invoiceRef, err)
		}
	}

	// payment recovery cancels the deletion clock
	return s.users.ClearPaymentFailure(sub.UserID)
}

// HandlePaymentFailure marks the subscription past due and starts the
// deletion clock. Repeated failures never move an existing deadline.
func (s *Service) HandlePaymentFailure(ctx context.Context, customerRef, invoiceRef string) error {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByCustomerID(customerRef)
	if err != nil {
		return err
	}

	sub.Status = models.SubscriptionStatusPastDue
	if err := s.repo.SaveSubscription(sub); err != nil {
		return err
	}

	if invoiceRef != "" {
		if err := s.repo.MarkInvoiceFailed(invoiceRef); err != nil {
			log.Warnf("[Billing] Could not mark invoice %s failed: %v", invoiceRef, err)
		}
	}

	failedAt := s.now()
	deleteAt := failedAt.Add(PaymentFailureGraceDay * 24 * time.Hour)
	return s.users.MarkPaymentFailed(sub.UserID, failedAt, deleteAt)
}

// HandleSubscriptionCanceled mirrors a provider-side cancellation. It is
// idempotent against an already-canceled record.
func (s *Service) HandleSubscriptionCanceled(subscriptionRef string) error {
	sub, err := s.repo.GetSubscriptionByProviderID(subscriptionRef)
	if err != nil {
		return err
	}
	if sub.IsCanceled() {
		return nil
	}

	now := s.now()
	sub.Status = models.SubscriptionStatusCanceled
	sub.CanceledAt = &now
	return s.repo.SaveSubscription(sub)
}

// CancelSubscription is the user-driven cancellation: upstream first,
// then the local mirror.
func (s *Service) CancelSubscription(ctx context.Context, userID uint) error {
	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil {
		return err
	}
	if sub.ProviderSubscription == "" {
		return ErrNoSubscription
	}

	if err := s.provider.CancelSubscription(ctx, sub.ProviderSubscription); err != nil {
		return err
	}

	now := s.now()
	sub.Status = models.SubscriptionStatusCanceled
	sub.CanceledAt = &now
	return s.repo.SaveSubscription(sub)
}
