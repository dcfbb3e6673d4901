package billing

import (
	"context"
	"errors"
)

// Coupon rejection reasons.
var (
	ErrCouponInactive  = errors.New("coupon is inactive")
	ErrCouponExpired   = errors.New("coupon has expired")
	ErrCouponExhausted = errors.New("coupon has no uses left")
)

// applyCoupon validates the code, lazily mirrors it into the provider
// and increments its usage counter. Returns the provider coupon id.
func (s *Service) applyCoupon(ctx context.Context, code string) (string, error) {
	coupon, err := s.repo.GetCouponByCode(code)
	if err != nil {
		return "", err
	}

	now := s.now()
	if !coupon.IsActive {
		return "", ErrCouponInactive
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return "", ErrCouponExpired
	}
	if coupon.MaxUses != nil && coupon.CurrentUses >= *coupon.MaxUses {
		return "", ErrCouponExhausted
	}

	// The provider-side coupon is created on first use and cached.
	if coupon.ProviderCouponID == "" {
		id, err := s.provider.CreateCoupon(ctx, coupon.Code, coupon.DiscountPercent, coupon.DiscountAmount)
		if err != nil {
			return "", err
		}
		coupon.ProviderCouponID = id
		if err := s.repo.SaveCoupon(coupon); err != nil {
			return "", err
		}
	}

	if err := s.repo.IncrementCouponUses(coupon.ID); err != nil {
		return "", err
	}
	return coupon.ProviderCouponID, nil
}

// ValidateCoupon checks a code without consuming a use, for the
// pre-flight validation endpoint.
func (s *Service) ValidateCoupon(code string) error {
	coupon, err := s.repo.GetCouponByCode(code)
	if err != nil {
		return err
	}
	now := s.now()
	switch {
	case !coupon.IsActive:
		return ErrCouponInactive
	case coupon.ValidUntil != nil && now.After(*coupon.ValidUntil):
		return ErrCouponExpired
	case coupon.MaxUses != nil && coupon.CurrentUses >= *coupon.MaxUses:
		return ErrCouponExhausted
	}
	return nil
}
