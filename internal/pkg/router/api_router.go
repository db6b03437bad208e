package router

import (
	apiv1 "github.com/prasastio/kreasi/internal/api/v1"
	"github.com/prasastio/kreasi/app/controllers"
	"github.com/prasastio/kreasi/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()

	v1.Get("/ping", apiServer.GetPing)
	v1.Get("/plans", apiServer.GetPlans)

	// Gateway callback: unauthenticated, signature-verified in the handler.
	v1.Post("/payments/notify", apiServer.PostPaymentNotify)

	// Session-authenticated billing surface
	v1.Post("/checkout", middleware.RequireAPISessionAuth, apiServer.PostCheckout)
	v1.Post("/checkout/:id/cancel", middleware.RequireAPISessionAuth, apiServer.PostCheckoutCancel)
	v1.Get("/membership", middleware.RequireAPISessionAuth, apiServer.GetMembership)

	// Member content: reads allow grace, writes do not
	content := v1.Group("/content", middleware.RequireAPISessionAuth)
	content.Get("/gallery", middleware.RequireEntitlement, controllers.HandleListGallery)
	content.Get("/gallery/:id", middleware.RequireEntitlement, controllers.HandleGetGalleryItem)
	content.Post("/gallery", middleware.RequireWritableEntitlement, controllers.HandleCreateGalleryItem)
	content.Get("/music", middleware.RequireEntitlement, controllers.HandleListMusic)
	content.Get("/music/:id", middleware.RequireEntitlement, controllers.HandleGetMusicTrack)
	content.Post("/music", middleware.RequireWritableEntitlement, controllers.HandleCreateMusicTrack)
	content.Get("/stories", middleware.RequireEntitlement, controllers.HandleListStories)
	content.Get("/stories/:id", middleware.RequireEntitlement, controllers.HandleGetStory)
	content.Post("/stories", middleware.RequireWritableEntitlement, controllers.HandleCreateStory)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
