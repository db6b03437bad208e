package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/prasastio/kreasi/app/models"
	"github.com/prasastio/kreasi/internal/pkg/billing"
	"github.com/prasastio/kreasi/internal/pkg/usercontext"
)

type checkoutRequest struct {
	PlanID     uint   `json:"plan_id"`
	CouponCode string `json:"coupon_code"`
}

// HandleCreateCheckout opens a checkout intent for the logged-in user and
// returns the gateway token the client needs to start payment.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || req.PlanID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "plan_id is required",
		})
	}

	payment, err := billingService().CreateIntent(c.Context(), userCtx.UserID, req.PlanID, req.CouponCode)
	switch {
	case errors.Is(err, billing.ErrPlanUnavailable):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "plan_unavailable",
			"message": "this plan is not available for purchase",
		})
	case errors.Is(err, billing.ErrPromotionAlreadyUsed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "promotion_already_used",
			"message": "this promotion was already redeemed on your account",
		})
	case errors.Is(err, billing.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "gateway_unavailable",
			"message": "the payment provider is not reachable, please retry",
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not create checkout",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":               payment.ID,
		"order_id":         payment.OrderID,
		"status":           payment.Status,
		"base_price":       payment.BasePrice,
		"discount_percent": payment.DiscountPercent,
		"final_price":      payment.FinalPrice,
		"token":            payment.GatewayToken,
		"redirect_url":     payment.RedirectURL,
	})
}

// HandleCancelCheckout abandons a pending checkout intent.
func HandleCancelCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid checkout id",
		})
	}

	payment, err := billingService().CancelIntent(c.Context(), userCtx.UserID, uint(id))
	switch {
	case errors.Is(err, billing.ErrIntentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "checkout not found",
		})
	case errors.Is(err, models.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "not_cancellable",
			"message": "this checkout is no longer pending",
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not cancel checkout",
		})
	}

	return c.JSON(fiber.Map{
		"id":       payment.ID,
		"order_id": payment.OrderID,
		"status":   payment.Status,
	})
}
