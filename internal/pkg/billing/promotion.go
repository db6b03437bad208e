package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prasastio/kreasi/app/models"
	"gorm.io/gorm"
)

// Quote is a resolved discount: which promotion applies and at what percent.
type Quote struct {
	PromotionID     uint
	DiscountPercent int
}

// eligibility carries the snapshot a promotion is judged against, so the
// gate logic stays a pure function over explicit inputs.
type eligibility struct {
	PlanID             uint
	Now                time.Time
	PriorSubscriptions int64
	Redemptions        int64
}

// promotionEligible applies the disqualification gates in order: active
// window, plan scope, new-customer-only, quota. Promotion.Plans must be
// preloaded for scoped promotions.
func promotionEligible(p *models.Promotion, in eligibility) bool {
	if !p.WindowContains(in.Now) {
		return false
	}
	if !p.AppliesToPlan(in.PlanID) {
		return false
	}
	if p.NewCustomerOnly && in.PriorSubscriptions > 0 {
		return false
	}
	if p.MaxRedemptions != nil && in.Redemptions >= int64(*p.MaxRedemptions) {
		return false
	}
	return p.DiscountPercent >= 1 && p.DiscountPercent <= 100
}

// ResolvePromotion picks the promotion for a checkout: the coupon's
// promotion when a code is supplied, otherwise the automatic promotion with
// the highest discount. A candidate failing any gate reverts to full price
// rather than failing the checkout, so a stale coupon never blocks a
// purchase. Returns nil when no discount applies.
func (s *Service) ResolvePromotion(planID, userID uint, couponCode string, now time.Time) (*Quote, error) {
	promo, err := s.selectCandidate(couponCode, now)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, nil
	}

	in := eligibility{PlanID: planID, Now: now}
	if promo.NewCustomerOnly {
		in.PriorSubscriptions, err = s.repo.CountSubscriptionsByUser(userID)
		if err != nil {
			return nil, fmt.Errorf("count prior subscriptions: %w", err)
		}
	}
	if promo.MaxRedemptions != nil {
		in.Redemptions, err = s.repo.CountRedemptions(promo.ID)
		if err != nil {
			return nil, fmt.Errorf("count redemptions: %w", err)
		}
	}

	if !promotionEligible(promo, in) {
		return nil, nil
	}
	return &Quote{PromotionID: promo.ID, DiscountPercent: promo.DiscountPercent}, nil
}

func (s *Service) selectCandidate(couponCode string, now time.Time) (*models.Promotion, error) {
	if code := strings.TrimSpace(couponCode); code != "" {
		promo, err := s.repo.FindPromotionByCode(code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("lookup coupon: %w", err)
		}
		return promo, nil
	}

	candidates, err := s.repo.ListAutomaticPromotions(now)
	if err != nil {
		return nil, fmt.Errorf("list automatic promotions: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	// Best discount first; a disqualified best candidate means full price,
	// not a fallback to the runner-up.
	return &candidates[0], nil
}

// FinalPrice applies an integer discount percent to a minor-unit price,
// rounding half up and flooring at zero.
func FinalPrice(basePrice int64, discountPercent int) int64 {
	if discountPercent <= 0 {
		return basePrice
	}
	if discountPercent >= 100 {
		return 0
	}
	final := (basePrice*int64(100-discountPercent) + 50) / 100
	if final < 0 {
		return 0
	}
	return final
}
