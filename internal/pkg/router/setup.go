package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glaciervault/glaciervault/internal/pkg/middleware"
)

// Router installs a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires all route groups. The HTTP router goes first so
// session store and OAuth providers exist before the API routes.
func InstallRouter(app *fiber.App, subscription middleware.SubscriptionChecker, capacity middleware.CapacityChecker) {
	setup(app, NewHttpRouter(), NewApiRouter(subscription, capacity))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
