package repository

import (
	"github.com/prasastio/kreasi/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// PlanRepository defines the interface for plan-related database operations
type PlanRepository interface {
	Create(plan *models.Plan) error
	GetByID(id uint) (*models.Plan, error)
	GetBySlug(slug string) (*models.Plan, error)
	GetActive() ([]models.Plan, error)
	Update(plan *models.Plan) error
}

// ContentRepository defines the interface for the member content catalog
type ContentRepository interface {
	CreateGalleryItem(item *models.GalleryItem) error
	GetGalleryItem(id uint) (*models.GalleryItem, error)
	ListGallery(offset, limit int) ([]models.GalleryItem, error)
	CreateMusicTrack(track *models.MusicTrack) error
	GetMusicTrack(id uint) (*models.MusicTrack, error)
	ListMusic(offset, limit int) ([]models.MusicTrack, error)
	CreateStory(story *models.Story) error
	GetStory(id uint) (*models.Story, error)
	ListStories(offset, limit int) ([]models.Story, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Plan    PlanRepository
	Content ContentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Plan:    NewPlanRepository(db),
		Content: NewContentRepository(db),
	}
}
