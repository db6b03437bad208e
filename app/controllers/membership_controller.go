package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/prasastio/kreasi/app/repository"
	"github.com/prasastio/kreasi/internal/pkg/entitlements"
	"github.com/prasastio/kreasi/internal/pkg/usercontext"
)

// HandleGetMembership reports the caller's current access tier and the
// timestamps behind it.
func HandleGetMembership(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not load membership",
		})
	}

	access := entitlements.ClassifyUser(user, time.Now())

	resp := fiber.Map{
		"tier":          access.Tier,
		"allowed":       access.Allowed,
		"active_until":  user.ActiveUntil,
		"trial_ends_at": user.TrialEndsAt,
	}
	if access.Tier == entitlements.TierGrace {
		resp["remaining_hours"] = access.RemainingHours
	}
	if user.PlanID != nil {
		if plan, err := repository.GetGlobalFactory().GetPlanRepository().GetByID(*user.PlanID); err == nil {
			resp["plan"] = fiber.Map{
				"id":   plan.ID,
				"name": plan.Name,
				"slug": plan.Slug,
			}
		}
	}

	return c.JSON(resp)
}
