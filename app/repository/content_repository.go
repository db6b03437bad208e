package repository

import (
	"github.com/prasastio/kreasi/app/models"
	"gorm.io/gorm"
)

// contentRepository implements the ContentRepository interface
type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository instance
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) CreateGalleryItem(item *models.GalleryItem) error {
	return r.db.Create(item).Error
}

func (r *contentRepository) GetGalleryItem(id uint) (*models.GalleryItem, error) {
	var item models.GalleryItem
	if err := r.db.First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *contentRepository) ListGallery(offset, limit int) ([]models.GalleryItem, error) {
	var items []models.GalleryItem
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, err
}

func (r *contentRepository) CreateMusicTrack(track *models.MusicTrack) error {
	return r.db.Create(track).Error
}

func (r *contentRepository) GetMusicTrack(id uint) (*models.MusicTrack, error) {
	var track models.MusicTrack
	if err := r.db.First(&track, id).Error; err != nil {
		return nil, err
	}
	return &track, nil
}

func (r *contentRepository) ListMusic(offset, limit int) ([]models.MusicTrack, error) {
	var tracks []models.MusicTrack
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tracks).Error
	return tracks, err
}

func (r *contentRepository) CreateStory(story *models.Story) error {
	return r.db.Create(story).Error
}

func (r *contentRepository) GetStory(id uint) (*models.Story, error) {
	var story models.Story
	if err := r.db.First(&story, id).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *contentRepository) ListStories(offset, limit int) ([]models.Story, error) {
	var stories []models.Story
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&stories).Error
	return stories, err
}
