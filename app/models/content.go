package models

import (
	"time"

	"gorm.io/gorm"
)

// Content rows are thin; the interesting part is that every write to them
// runs behind the entitlement guard.

type GalleryItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"type:varchar(150);not null" json:"title" validate:"required,max=150"`
	FileKey   string         `gorm:"type:varchar(255);not null" json:"file_key"`
	IsPublic  bool           `gorm:"default:false" json:"is_public"`
	ViewCount int64          `gorm:"not null;default:0" json:"view_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type MusicTrack struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"type:varchar(150);not null" json:"title" validate:"required,max=150"`
	FileKey   string         `gorm:"type:varchar(255);not null" json:"file_key"`
	PlayCount int64          `gorm:"not null;default:0" json:"play_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Story struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"type:varchar(150);not null" json:"title" validate:"required,max=150"`
	Body      string         `gorm:"type:longtext" json:"body"`
	ViewCount int64          `gorm:"not null;default:0" json:"view_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
