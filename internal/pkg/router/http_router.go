package router

import (
	"github.com/prasastio/kreasi/app/controllers"
	"github.com/prasastio/kreasi/internal/pkg/constants"
	"github.com/prasastio/kreasi/internal/pkg/middleware"
	"github.com/prasastio/kreasi/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Auth
	app.Post("/register", controllers.HandleAuthRegister)
	app.Post(constants.LoginRoute, controllers.HandleAuthLogin)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)
}
