package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/prasastio/kreasi/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping endpoint response body.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetPlans returns the purchasable plan catalog with discount previews.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return controllers.HandleListPlans(c)
}

// PostCheckout opens a checkout intent for the authenticated user.
// Security is enforced via session middleware attached in the router.
func (s *APIServer) PostCheckout(c *fiber.Ctx) error {
	return controllers.HandleCreateCheckout(c)
}

// PostCheckoutCancel abandons a pending checkout intent.
func (s *APIServer) PostCheckoutCancel(c *fiber.Ctx) error {
	return controllers.HandleCancelCheckout(c)
}

// GetMembership reports the caller's access tier.
func (s *APIServer) GetMembership(c *fiber.Ctx) error {
	return controllers.HandleGetMembership(c)
}

// PostPaymentNotify receives the payment gateway callback. This endpoint is
// unauthenticated on purpose; the payload signature is the authentication.
func (s *APIServer) PostPaymentNotify(c *fiber.Ctx) error {
	return controllers.HandlePaymentNotify(c)
}
