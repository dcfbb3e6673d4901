package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/internal/pkg/payments"
)

type fakeRepo struct {
	subs     map[uint]*models.Subscription
	methods  map[uint]*models.PaymentMethod
	coupons  map[string]*models.Coupon
	invoices []models.Invoice

	saveCount int
	subErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subs:    make(map[uint]*models.Subscription),
		methods: make(map[uint]*models.PaymentMethod),
		coupons: make(map[string]*models.Coupon),
	}
}

func (f *fakeRepo) GetSubscriptionByUserID(userID uint) (*models.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	sub, ok := f.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sub, nil
}

func (f *fakeRepo) GetSubscriptionByCustomerID(customerID string) (*models.Subscription, error) {
	for _, sub := range f.subs {
		if sub.ProviderCustomerID == customerID {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetSubscriptionByProviderID(subscriptionID string) (*models.Subscription, error) {
	for _, sub := range f.subs {
		if sub.ProviderSubscription == subscriptionID {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateSubscription(sub *models.Subscription) error {
	sub.ID = uint(len(f.subs) + 1)
	f.subs[sub.UserID] = sub
	return nil
}

func (f *fakeRepo) SaveSubscription(sub *models.Subscription) error {
	f.saveCount++
	f.subs[sub.UserID] = sub
	return nil
}

func (f *fakeRepo) GetPaymentMethodByUserID(userID uint) (*models.PaymentMethod, error) {
	pm, ok := f.methods[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pm, nil
}

func (f *fakeRepo) SavePaymentMethod(pm *models.PaymentMethod) error {
	f.methods[pm.UserID] = pm
	return nil
}

func (f *fakeRepo) DeletePaymentMethod(userID uint) error {
	delete(f.methods, userID)
	return nil
}

func (f *fakeRepo) GetCouponByCode(code string) (*models.Coupon, error) {
	coupon, ok := f.coupons[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return coupon, nil
}

func (f *fakeRepo) SaveCoupon(coupon *models.Coupon) error {
	f.coupons[coupon.Code] = coupon
	return nil
}

func (f *fakeRepo) IncrementCouponUses(couponID uint) error {
	for _, coupon := range f.coupons {
		if coupon.ID == couponID {
			coupon.CurrentUses++
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateInvoice(invoice *models.Invoice) error {
	f.invoices = append(f.invoices, *invoice)
	return nil
}

func (f *fakeRepo) GetInvoicesByUserID(userID uint, limit int) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) MarkInvoicePaid(providerInvoiceID string, paidAt time.Time) error {
	for i := range f.invoices {
		if f.invoices[i].ProviderInvoiceID == providerInvoiceID {
			f.invoices[i].Status = models.InvoiceStatusPaid
			f.invoices[i].PaidAt = &paidAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) MarkInvoiceFailed(providerInvoiceID string) error {
	for i := range f.invoices {
		if f.invoices[i].ProviderInvoiceID == providerInvoiceID {
			f.invoices[i].Status = models.InvoiceStatusFailed
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeProvider struct {
	customers       int
	subscriptions   int
	invoiceIDs      []string
	couponIDs       int
	cancelCalls     int
	detachCalls     int
	subscribeErr    error
	couponErr       error
	getSubInfo      *payments.SubscriptionInfo
	getSubErr       error
	lastCouponID    string
	lastInvoiceDesc string
	lastItems       []payments.InvoiceItem
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	f.customers++
	return "cus_test", nil
}

func (f *fakeProvider) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	return "seti_secret", nil
}

func (f *fakeProvider) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*payments.CardInfo, error) {
	return &payments.CardInfo{PaymentMethodID: paymentMethodID, Brand: "visa", Last4: "4242"}, nil
}

func (f *fakeProvider) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	f.detachCalls++
	return nil
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, customerID string, trialDays int64, couponID string) (*payments.SubscriptionInfo, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.subscriptions++
	f.lastCouponID = couponID
	return &payments.SubscriptionInfo{ID: "sub_test", Status: "trialing"}, nil
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*payments.SubscriptionInfo, error) {
	if f.getSubErr != nil {
		return nil, f.getSubErr
	}
	if f.getSubInfo != nil {
		return f.getSubInfo, nil
	}
	return &payments.SubscriptionInfo{ID: subscriptionID, Status: "active"}, nil
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	f.cancelCalls++
	return nil
}

func (f *fakeProvider) CreateCoupon(ctx context.Context, code string, percentOff *float64, amountOff *int64) (string, error) {
	if f.couponErr != nil {
		return "", f.couponErr
	}
	f.couponIDs++
	return "coup_test", nil
}

func (f *fakeProvider) CreateInvoice(ctx context.Context, customerID, description string, items []payments.InvoiceItem) (string, error) {
	f.lastInvoiceDesc = description
	f.lastItems = items
	id := "in_test"
	f.invoiceIDs = append(f.invoiceIDs, id)
	return id, nil
}

func (f *fakeProvider) ConstructWebhookEvent(payload []byte, signature string) (*payments.WebhookEvent, error) {
	return nil, errors.New("not used in tests")
}

type fakeUsers struct {
	users map[uint]*models.User

	paymentFailed  map[uint]time.Time
	deletionAt     map[uint]time.Time
	clearedFailure []uint
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{
		users:         make(map[uint]*models.User),
		paymentFailed: make(map[uint]time.Time),
		deletionAt:    make(map[uint]time.Time),
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(user *models.User) error { f.users[user.ID] = user; return nil }

func (f *fakeUsers) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByProvider(provider, providerUserID string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Update(user *models.User) error { f.users[user.ID] = user; return nil }
func (f *fakeUsers) Delete(id uint) error           { delete(f.users, id); return nil }
func (f *fakeUsers) List(offset, limit int) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUsers) ListActive() ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) ListScheduledForDeletion(now time.Time) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUsers) MarkPaymentFailed(userID uint, failedAt, deleteAt time.Time) error {
	// only the first failure sets the clock
	if _, exists := f.paymentFailed[userID]; exists {
		return nil
	}
	f.paymentFailed[userID] = failedAt
	f.deletionAt[userID] = deleteAt
	return nil
}

func (f *fakeUsers) ClearPaymentFailure(userID uint) error {
	delete(f.paymentFailed, userID)
	delete(f.deletionAt, userID)
	f.clearedFailure = append(f.clearedFailure, userID)
	return nil
}

func (f *fakeUsers) SetPaymentMethod(userID uint, hasMethod bool, storageLimit int64) error {
	if u, ok := f.users[userID]; ok {
		u.HasPaymentMethod = hasMethod
		u.StorageLimitBytes = storageLimit
	}
	return nil
}

func (f *fakeUsers) Count() (int64, error) { return int64(len(f.users)), nil }

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(n int) *int { return &n }

func testBillingService(repo *fakeRepo, users *fakeUsers, provider *fakeProvider, now time.Time) *Service {
	svc := NewService(repo, users, provider)
	svc.now = func() time.Time { return now }
	return svc
}

func TestInitializeSubscription_ReusesExistingCustomer(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderCustomerID: "cus_existing", Status: models.SubscriptionStatusIncomplete}
	users := newFakeUsers(&models.User{ID: 1, Email: "a@example.com"})
	provider := &fakeProvider{}
	svc := testBillingService(repo, users, provider, time.Now())

	result, err := svc.InitializeSubscription(context.Background(), 1)
	if err != nil {
		t.Fatalf("InitializeSubscription: %v", err)
	}
	if provider.customers != 0 {
		t.Fatalf("existing customer must be reused, created %d", provider.customers)
	}
	if result.CustomerID != "cus_existing" {
		t.Fatalf("customer = %q, want cus_existing", result.CustomerID)
	}
	if result.ClientSecret == "" {
		t.Fatalf("expected a fresh setup secret")
	}
}

func TestInitializeSubscription_CreatesCustomerAndRecord(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUsers(&models.User{ID: 1, Email: "a@example.com"})
	provider := &fakeProvider{}
	svc := testBillingService(repo, users, provider, time.Now())

	result, err := svc.InitializeSubscription(context.Background(), 1)
	if err != nil {
		t.Fatalf("InitializeSubscription: %v", err)
	}
	if provider.customers != 1 {
		t.Fatalf("customers created = %d, want 1", provider.customers)
	}
	sub, ok := repo.subs[1]
	if !ok {
		t.Fatalf("subscription record not created")
	}
	if sub.Status != models.SubscriptionStatusIncomplete {
		t.Fatalf("status = %q, want incomplete", sub.Status)
	}
	if result.CustomerID != "cus_test" {
		t.Fatalf("customer = %q, want cus_test", result.CustomerID)
	}
}

func TestConfirmCardAndStartTrial(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderCustomerID: "cus_test", Status: models.SubscriptionStatusIncomplete}
	users := newFakeUsers(&models.User{ID: 1, Email: "a@example.com", StorageLimitBytes: models.StorageLimitBase})
	provider := &fakeProvider{}
	svc := testBillingService(repo, users, provider, now)

	sub, err := svc.ConfirmCardAndStartTrial(context.Background(), 1, "pm_123", "")
	if err != nil {
		t.Fatalf("ConfirmCardAndStartTrial: %v", err)
	}
	if sub.Status != models.SubscriptionStatusTrialing {
		t.Fatalf("status = %q, want trialing", sub.Status)
	}
	if sub.TrialEnd == nil || !sub.TrialEnd.Equal(now.Add(30*24*time.Hour)) {
		t.Fatalf("trial end = %v, want %v", sub.TrialEnd, now.Add(30*24*time.Hour))
	}
	if pm := repo.methods[1]; pm == nil || pm.CardLast4 != "4242" {
		t.Fatalf("payment method not saved: %+v", repo.methods[1])
	}
	user := users.users[1]
	if !user.HasPaymentMethod || user.StorageLimitBytes != models.StorageLimitPaid {
		t.Fatalf("user storage ceiling not lifted: has=%v limit=%d", user.HasPaymentMethod, user.StorageLimitBytes)
	}
}

func TestConfirmCardAndStartTrial_IgnoresBadCoupon(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderCustomerID: "cus_test"}
	users := newFakeUsers(&models.User{ID: 1})
	provider := &fakeProvider{}
	svc := testBillingService(repo, users, provider, time.Now())

	sub, err := svc.ConfirmCardAndStartTrial(context.Background(), 1, "pm_123", "NOSUCHCODE")
	if err != nil {
		t.Fatalf("bad coupon must not fail trial start, got %v", err)
	}
	if sub.Status != models.SubscriptionStatusTrialing {
		t.Fatalf("status = %q, want trialing", sub.Status)
	}
	if provider.lastCouponID != "" {
		t.Fatalf("no coupon should reach the provider, got %q", provider.lastCouponID)
	}
}

func TestConfirmCardAndStartTrial_WithoutCustomer(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1}
	svc := testBillingService(repo, newFakeUsers(&models.User{ID: 1}), &fakeProvider{}, time.Now())

	_, err := svc.ConfirmCardAndStartTrial(context.Background(), 1, "pm_123", "")
	if !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("err = %v, want ErrNoSubscription", err)
	}
}

func TestHasValidSubscription(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		sub        *models.Subscription
		wantValid  bool
		wantReason string
		wantDays   int
	}{
		{
			name:       "no subscription",
			wantValid:  false,
			wantReason: ReasonSubscriptionRequired,
		},
		{
			name: "trialing with time left",
			sub: &models.Subscription{
				UserID:   1,
				Status:   models.SubscriptionStatusTrialing,
				TrialEnd: timePtr(now.Add(49 * time.Hour)),
			},
			wantValid: true,
			wantDays:  3,
		},
		{
			name: "trialing expired",
			sub: &models.Subscription{
				UserID:   1,
				Status:   models.SubscriptionStatusTrialing,
				TrialEnd: timePtr(now.Add(-time.Hour)),
			},
			wantValid:  false,
			wantReason: ReasonTrialExpired,
		},
		{
			name:      "active",
			sub:       &models.Subscription{UserID: 1, Status: models.SubscriptionStatusActive},
			wantValid: true,
		},
		{
			name:       "past due",
			sub:        &models.Subscription{UserID: 1, Status: models.SubscriptionStatusPastDue},
			wantValid:  false,
			wantReason: ReasonSubscriptionInactive,
		},
		{
			name:       "canceled",
			sub:        &models.Subscription{UserID: 1, Status: models.SubscriptionStatusCanceled},
			wantValid:  false,
			wantReason: ReasonSubscriptionInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			if tt.sub != nil {
				repo.subs[1] = tt.sub
			}
			svc := testBillingService(repo, newFakeUsers(), &fakeProvider{}, now)

			got, err := svc.HasValidSubscription(1)
			if err != nil {
				t.Fatalf("HasValidSubscription: %v", err)
			}
			if got.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.ReasonCode != tt.wantReason {
				t.Fatalf("reason = %q, want %q", got.ReasonCode, tt.wantReason)
			}
			if got.TrialDaysRemaining != tt.wantDays {
				t.Fatalf("trial days = %d, want %d", got.TrialDaysRemaining, tt.wantDays)
			}
		})
	}
}

func TestHasValidSubscription_SurfacesLookupFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subErr = errors.New("connection refused")
	svc := testBillingService(repo, newFakeUsers(), &fakeProvider{}, time.Now())

	result, err := svc.HasValidSubscription(1)
	if err == nil {
		t.Fatalf("lookup failure must be surfaced, got %+v", result)
	}
	if result.ReasonCode == ReasonSubscriptionRequired {
		t.Fatalf("outage must not read as a missing subscription")
	}
}

func TestHandlePaymentSuccess_ReactivatesAndClearsFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := now.AddDate(0, 1, 0)
	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderCustomerID: "cus_test", Status: models.SubscriptionStatusPastDue}
	users := newFakeUsers(&models.User{ID: 1})
	users.paymentFailed[1] = now.Add(-24 * time.Hour)
	provider := &fakeProvider{getSubInfo: &payments.SubscriptionInfo{
		ID:                 "sub_test",
		Status:             "active",
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
	}}
	svc := testBillingService(repo, users, provider, now)

	if err := svc.HandlePaymentSuccess(context.Background(), "cus_test", "sub_test", "in_1"); err != nil {
		t.Fatalf("HandlePaymentSuccess: %v", err)
	}

	sub := repo.subs[1]
	if sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("status = %q, want active", sub.Status)
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(periodEnd) {
		t.Fatalf("period end not refreshed: %v", sub.CurrentPeriodEnd)
	}
	if len(users.clearedFailure) != 1 || users.clearedFailure[0] != 1 {
		t.Fatalf("deletion clock not cleared: %v", users.clearedFailure)
	}
}

func TestHandlePaymentFailure_StartsDeletionClockOnce(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderCustomerID: "cus_test", Status: models.SubscriptionStatusActive}
	users := newFakeUsers(&models.User{ID: 1})
	svc := testBillingService(repo, users, &fakeProvider{}, now)

	if err := svc.HandlePaymentFailure(context.Background(), "cus_test", ""); err != nil {
		t.Fatalf("HandlePaymentFailure: %v", err)
	}
	if repo.subs[1].Status != models.SubscriptionStatusPastDue {
		t.Fatalf("status = %q, want past_due", repo.subs[1].Status)
	}
	wantDelete := now.Add(60 * 24 * time.Hour)
	if got := users.deletionAt[1]; !got.Equal(wantDelete) {
		t.Fatalf("deletion at = %v, want %v", got, wantDelete)
	}

	// a second failure must not move the deadline
	firstFailed := users.paymentFailed[1]
	svc.now = func() time.Time { return now.Add(72 * time.Hour) }
	if err := svc.HandlePaymentFailure(context.Background(), "cus_test", ""); err != nil {
		t.Fatalf("second HandlePaymentFailure: %v", err)
	}
	if !users.paymentFailed[1].Equal(firstFailed) {
		t.Fatalf("first failure timestamp moved: %v -> %v", firstFailed, users.paymentFailed[1])
	}
	if !users.deletionAt[1].Equal(wantDelete) {
		t.Fatalf("deletion deadline moved: %v", users.deletionAt[1])
	}
}

func TestHandleSubscriptionCanceled_Idempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderSubscription: "sub_test", Status: models.SubscriptionStatusActive}
	svc := testBillingService(repo, newFakeUsers(), &fakeProvider{}, now)

	if err := svc.HandleSubscriptionCanceled("sub_test"); err != nil {
		t.Fatalf("HandleSubscriptionCanceled: %v", err)
	}
	if repo.subs[1].Status != models.SubscriptionStatusCanceled {
		t.Fatalf("status = %q, want canceled", repo.subs[1].Status)
	}
	saves := repo.saveCount

	if err := svc.HandleSubscriptionCanceled("sub_test"); err != nil {
		t.Fatalf("repeated cancel event: %v", err)
	}
	if repo.saveCount != saves {
		t.Fatalf("already-canceled record was written again")
	}
}

func TestCancelSubscription(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderSubscription: "sub_test", Status: models.SubscriptionStatusActive}
	provider := &fakeProvider{}
	svc := testBillingService(repo, newFakeUsers(), provider, time.Now())

	if err := svc.CancelSubscription(context.Background(), 1); err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}
	if provider.cancelCalls != 1 {
		t.Fatalf("upstream cancel not called")
	}
	if repo.subs[1].Status != models.SubscriptionStatusCanceled {
		t.Fatalf("status = %q, want canceled", repo.subs[1].Status)
	}
	if repo.subs[1].CanceledAt == nil {
		t.Fatalf("canceled_at not set")
	}
}

func TestCancelSubscription_WithoutProviderReference(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, Status: models.SubscriptionStatusIncomplete}
	svc := testBillingService(repo, newFakeUsers(), &fakeProvider{}, time.Now())

	if err := svc.CancelSubscription(context.Background(), 1); !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("err = %v, want ErrNoSubscription", err)
	}
}

func TestRemovePaymentMethod_DropsStorageCeiling(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.methods[1] = &models.PaymentMethod{ID: 1, UserID: 1, ProviderCustomerID: "cus_test", ProviderPaymentMethodID: "pm_123"}
	users := newFakeUsers(&models.User{ID: 1, HasPaymentMethod: true, StorageLimitBytes: models.StorageLimitPaid})
	provider := &fakeProvider{}
	svc := testBillingService(repo, users, provider, time.Now())

	if err := svc.RemovePaymentMethod(context.Background(), 1); err != nil {
		t.Fatalf("RemovePaymentMethod: %v", err)
	}
	if provider.detachCalls != 1 {
		t.Fatalf("upstream detach not called")
	}
	if _, ok := repo.methods[1]; ok {
		t.Fatalf("local payment method not deleted")
	}
	user := users.users[1]
	if user.HasPaymentMethod || user.StorageLimitBytes != models.StorageLimitBase {
		t.Fatalf("ceiling not dropped: has=%v limit=%d", user.HasPaymentMethod, user.StorageLimitBytes)
	}
}
