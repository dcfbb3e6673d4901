package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/glaciervault/glaciervault/app/controllers"
	"github.com/glaciervault/glaciervault/internal/pkg/constants"
	"github.com/glaciervault/glaciervault/internal/pkg/oauth"
	"github.com/glaciervault/glaciervault/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", monitor.New())

	// OAuth login flow; issues JWTs on callback
	app.Get(constants.OAuthBeginPath, controllers.HandleOAuthBegin)
	app.Get(constants.OAuthCallback, controllers.HandleOAuthCallback)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
