package models

import "time"

// Plan is an immutable catalog entry. Price is stored in minor currency
// units; DurationDays is the entitlement period bought by one payment.
type Plan struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug         string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	Price        int64     `gorm:"not null" json:"price"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
