package models

import "time"

// PromotionRedemption records that a user has consumed a promotion. The row
// is inserted as a reservation at checkout time and confirmed on payment
// success; the composite unique index is the concurrency boundary that keeps
// a user from redeeming the same promotion twice.
type PromotionRedemption struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PromotionID uint       `gorm:"not null;index:ux_promotion_redemptions_promo_user,unique,priority:1" json:"promotion_id"`
	UserID      uint       `gorm:"not null;index:ux_promotion_redemptions_promo_user,unique,priority:2" json:"user_id"`
	ConfirmedAt *time.Time `gorm:"type:timestamp;default:null" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsConfirmed reports whether the redemption survived payment.
func (r *PromotionRedemption) IsConfirmed() bool {
	return r.ConfirmedAt != nil
}
