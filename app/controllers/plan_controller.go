package controllers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/prasastio/kreasi/app/repository"
	"github.com/prasastio/kreasi/internal/pkg/billing"
	"github.com/prasastio/kreasi/internal/pkg/cache"
)

const (
	planCatalogCacheKey = "plans:catalog"
	planCatalogCacheTTL = 60 * time.Second
)

type planView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Price           int64  `json:"price"`
	DurationDays    int    `json:"duration_days"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
	FinalPrice      int64  `json:"final_price"`
}

// HandleListPlans returns the purchasable catalog with the best automatic
// discount applied as a preview. The preview deliberately skips per-user
// gates like new-customer-only; the checkout quote is authoritative.
func HandleListPlans(c *fiber.Ctx) error {
	if cached, err := cache.Get(planCatalogCacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	plans, err := repository.GetGlobalFactory().GetPlanRepository().GetActive()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not load plans",
		})
	}

	svc := billingService()
	now := time.Now()
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		view := planView{
			ID:           p.ID,
			Name:         p.Name,
			Slug:         p.Slug,
			Price:        p.Price,
			DurationDays: p.DurationDays,
			FinalPrice:   p.Price,
		}
		quote, err := svc.ResolvePromotion(p.ID, 0, "", now)
		if err == nil && quote != nil {
			view.DiscountPercent = quote.DiscountPercent
			view.FinalPrice = billing.FinalPrice(p.Price, quote.DiscountPercent)
		}
		views = append(views, view)
	}

	body, err := json.Marshal(fiber.Map{"plans": views})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not encode plans",
		})
	}
	if err := cache.Set(planCatalogCacheKey, string(body), planCatalogCacheTTL); err != nil {
		log.Printf("plan catalog cache write failed: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}
