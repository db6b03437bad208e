package models

import "time"

// Promotion is an operator-created discount. A nil Code marks an automatic
// promotion that is applied without user input. The active window is
// [StartsAt, EndsAt). MaxRedemptions nil means unlimited.
type Promotion struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Code            *string    `gorm:"type:varchar(64);uniqueIndex" json:"code,omitempty"`
	DiscountPercent int        `gorm:"not null" json:"discount_percent" validate:"min=1,max=100"`
	StartsAt        time.Time  `gorm:"type:timestamp;not null" json:"starts_at"`
	EndsAt          time.Time  `gorm:"type:timestamp;not null" json:"ends_at"`
	NewCustomerOnly bool       `gorm:"default:false" json:"new_customer_only"`
	MaxRedemptions  *int       `json:"max_redemptions,omitempty"`
	AllPlans        bool       `gorm:"default:true" json:"all_plans"`
	Plans           []Plan     `gorm:"many2many:promotion_plans" json:"plans,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// WindowContains reports whether now falls inside [StartsAt, EndsAt).
func (p *Promotion) WindowContains(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// AppliesToPlan reports whether the promotion covers the given plan, either
// globally or through an explicit plan link. Plans must be preloaded.
func (p *Promotion) AppliesToPlan(planID uint) bool {
	if p.AllPlans {
		return true
	}
	for _, plan := range p.Plans {
		if plan.ID == planID {
			return true
		}
	}
	return false
}
