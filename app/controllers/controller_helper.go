package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/prasastio/kreasi/internal/pkg/billing"
	"github.com/prasastio/kreasi/internal/pkg/database"
	"github.com/prasastio/kreasi/internal/pkg/env"
	"github.com/prasastio/kreasi/internal/pkg/gateway"
)

// billingService wires the billing service with the live DB handle and the
// configured payment gateway.
func billingService() *billing.Service {
	return billing.NewServiceFromDB(
		database.GetDB(),
		gateway.NewClientFromEnv(),
		env.GetEnv("GATEWAY_SERVER_KEY", ""),
	)
}

// parsePagination reads offset/limit query parameters with sane bounds.
func parsePagination(c *fiber.Ctx) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
