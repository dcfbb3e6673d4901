package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glaciervault/glaciervault/app/models"
)

func TestApplyCoupon_CreatesProviderCouponOnce(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.coupons["LAUNCH"] = &models.Coupon{ID: 1, Code: "LAUNCH", IsActive: true}
	provider := &fakeProvider{}
	svc := testBillingService(repo, newFakeUsers(), provider, time.Now())

	id, err := svc.applyCoupon(context.Background(), "LAUNCH")
	if err != nil {
		t.Fatalf("applyCoupon: %v", err)
	}
	if id != "coup_test" {
		t.Fatalf("provider coupon id = %q, want coup_test", id)
	}
	if repo.coupons["LAUNCH"].CurrentUses != 1 {
		t.Fatalf("uses = %d, want 1", repo.coupons["LAUNCH"].CurrentUses)
	}

	// the provider-side coupon is cached, not re-created
	if _, err := svc.applyCoupon(context.Background(), "LAUNCH"); err != nil {
		t.Fatalf("second applyCoupon: %v", err)
	}
	if provider.couponIDs != 1 {
		t.Fatalf("provider coupon created %d times, want 1", provider.couponIDs)
	}
	if repo.coupons["LAUNCH"].CurrentUses != 2 {
		t.Fatalf("uses = %d, want 2", repo.coupons["LAUNCH"].CurrentUses)
	}
}

func TestValidateCoupon(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		coupon  *models.Coupon
		wantErr error
	}{
		{
			name:   "usable",
			coupon: &models.Coupon{ID: 1, Code: "OK", IsActive: true},
		},
		{
			name:    "inactive",
			coupon:  &models.Coupon{ID: 2, Code: "OFF", IsActive: false},
			wantErr: ErrCouponInactive,
		},
		{
			name:    "expired",
			coupon:  &models.Coupon{ID: 3, Code: "OLD", IsActive: true, ValidUntil: timePtr(now.Add(-time.Hour))},
			wantErr: ErrCouponExpired,
		},
		{
			name:    "exhausted",
			coupon:  &models.Coupon{ID: 4, Code: "FULL", IsActive: true, MaxUses: intPtr(5), CurrentUses: 5},
			wantErr: ErrCouponExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.coupons[tt.coupon.Code] = tt.coupon
			svc := testBillingService(repo, newFakeUsers(), &fakeProvider{}, now)

			err := svc.ValidateCoupon(tt.coupon.Code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateCoupon(%q) = %v, want %v", tt.coupon.Code, err, tt.wantErr)
			}
			if tt.coupon.CurrentUses != repo.coupons[tt.coupon.Code].CurrentUses {
				t.Fatalf("validation must not consume a use")
			}
		})
	}
}
