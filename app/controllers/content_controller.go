package controllers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/prasastio/kreasi/app/models"
	"github.com/prasastio/kreasi/app/repository"
	"github.com/prasastio/kreasi/internal/pkg/metrics/counter"
	"github.com/prasastio/kreasi/internal/pkg/usercontext"
)

// Member content endpoints. Reads run behind RequireEntitlement, writes
// behind RequireWritableEntitlement; the handlers themselves stay thin.

type galleryItemRequest struct {
	Title    string `json:"title"`
	FileKey  string `json:"file_key"`
	IsPublic bool   `json:"is_public"`
}

type musicTrackRequest struct {
	Title   string `json:"title"`
	FileKey string `json:"file_key"`
}

type storyRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func HandleListGallery(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	items, err := repository.GetGlobalFactory().GetContentRepository().ListGallery(offset, limit)
	if err != nil {
		return contentLoadError(c)
	}
	return c.JSON(fiber.Map{"items": items})
}

func HandleCreateGalleryItem(c *fiber.Ctx) error {
	var req galleryItemRequest
	if err := c.BodyParser(&req); err != nil || req.Title == "" || req.FileKey == "" {
		return contentBadRequest(c, "title and file_key are required")
	}

	item := &models.GalleryItem{
		UserID:   usercontext.GetUserID(c),
		Title:    req.Title,
		FileKey:  req.FileKey,
		IsPublic: req.IsPublic,
	}
	if err := repository.GetGlobalFactory().GetContentRepository().CreateGalleryItem(item); err != nil {
		return contentSaveError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func HandleListMusic(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	tracks, err := repository.GetGlobalFactory().GetContentRepository().ListMusic(offset, limit)
	if err != nil {
		return contentLoadError(c)
	}
	return c.JSON(fiber.Map{"tracks": tracks})
}

func HandleCreateMusicTrack(c *fiber.Ctx) error {
	var req musicTrackRequest
	if err := c.BodyParser(&req); err != nil || req.Title == "" || req.FileKey == "" {
		return contentBadRequest(c, "title and file_key are required")
	}

	track := &models.MusicTrack{
		UserID:  usercontext.GetUserID(c),
		Title:   req.Title,
		FileKey: req.FileKey,
	}
	if err := repository.GetGlobalFactory().GetContentRepository().CreateMusicTrack(track); err != nil {
		return contentSaveError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(track)
}

func HandleListStories(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	stories, err := repository.GetGlobalFactory().GetContentRepository().ListStories(offset, limit)
	if err != nil {
		return contentLoadError(c)
	}
	return c.JSON(fiber.Map{"stories": stories})
}

func HandleCreateStory(c *fiber.Ctx) error {
	var req storyRequest
	if err := c.BodyParser(&req); err != nil || req.Title == "" {
		return contentBadRequest(c, "title is required")
	}

	story := &models.Story{
		UserID: usercontext.GetUserID(c),
		Title:  req.Title,
		Body:   req.Body,
	}
	if err := repository.GetGlobalFactory().GetContentRepository().CreateStory(story); err != nil {
		return contentSaveError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(story)
}

func HandleGetGalleryItem(c *fiber.Ctx) error {
	id, ok := parseContentID(c)
	if !ok {
		return contentBadRequest(c, "invalid id")
	}
	item, err := repository.GetGlobalFactory().GetContentRepository().GetGalleryItem(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return contentNotFound(c)
	}
	if err != nil {
		return contentLoadError(c)
	}
	// View counting is write-behind via Redis; the flush sweep lands it in MySQL.
	if err := counter.AddGalleryView(item.ID); err != nil {
		log.Printf("gallery view counter failed for item %d: %v", item.ID, err)
	}
	return c.JSON(item)
}

func HandleGetMusicTrack(c *fiber.Ctx) error {
	id, ok := parseContentID(c)
	if !ok {
		return contentBadRequest(c, "invalid id")
	}
	track, err := repository.GetGlobalFactory().GetContentRepository().GetMusicTrack(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return contentNotFound(c)
	}
	if err != nil {
		return contentLoadError(c)
	}
	if err := counter.AddTrackPlay(track.ID); err != nil {
		log.Printf("track play counter failed for track %d: %v", track.ID, err)
	}
	return c.JSON(track)
}

func HandleGetStory(c *fiber.Ctx) error {
	id, ok := parseContentID(c)
	if !ok {
		return contentBadRequest(c, "invalid id")
	}
	story, err := repository.GetGlobalFactory().GetContentRepository().GetStory(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return contentNotFound(c)
	}
	if err != nil {
		return contentLoadError(c)
	}
	if err := counter.AddStoryView(story.ID); err != nil {
		log.Printf("story view counter failed for story %d: %v", story.ID, err)
	}
	return c.JSON(story)
}

func parseContentID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func contentNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   "not_found",
		"message": "content not found",
	})
}

func contentBadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "bad_request",
		"message": msg,
	})
}

func contentLoadError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal_server_error",
		"message": "could not load content",
	})
}

func contentSaveError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal_server_error",
		"message": "could not save content",
	})
}
