package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/prasastio/kreasi/app/repository"
	"github.com/prasastio/kreasi/internal/pkg/entitlements"
	"github.com/prasastio/kreasi/internal/pkg/usercontext"
)

// RequireEntitlement gates read access to member content. It classifies the
// user's stored subscription timestamps on every request and stores the
// resulting Access in Locals for handlers that want to surface it.
func RequireEntitlement(c *fiber.Ctx) error {
	access, ok := resolveAccess(c)
	if !ok {
		return nil
	}
	if !access.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "subscription_required",
			"message": "an active subscription or trial is required",
		})
	}
	c.Locals(usercontext.KeyAccess, access)
	return c.Next()
}

// RequireWritableEntitlement gates write access. Grace is read-only: a user
// inside the grace window may keep browsing but cannot publish.
func RequireWritableEntitlement(c *fiber.Ctx) error {
	access, ok := resolveAccess(c)
	if !ok {
		return nil
	}
	if !access.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "subscription_required",
			"message": "an active subscription or trial is required",
		})
	}
	if access.Tier == entitlements.TierGrace {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":           "grace_period_read_only",
			"message":         "your subscription expired; renew to publish again",
			"remaining_hours": access.RemainingHours,
		})
	}
	c.Locals(usercontext.KeyAccess, access)
	return c.Next()
}

// GetAccess returns the Access computed by the entitlement middleware, or a
// fresh classification when no guard ran on this route. The bool is false
// when an error response was already written to the client.
func GetAccess(c *fiber.Ctx) (entitlements.Access, bool) {
	if v, ok := c.Locals(usercontext.KeyAccess).(entitlements.Access); ok {
		return v, true
	}
	return resolveAccess(c)
}

// resolveAccess loads the user's row and classifies it. When it returns
// false it has already written an error response.
func resolveAccess(c *fiber.Ctx) (entitlements.Access, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
		return entitlements.Access{}, false
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("entitlement middleware: load user %d failed: %v", userCtx.UserID, err)
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not resolve membership",
		})
		return entitlements.Access{}, false
	}

	return entitlements.ClassifyUser(user, time.Now()), true
}
