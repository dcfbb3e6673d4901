package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/glaciervault/glaciervault/app/controllers"
	"github.com/glaciervault/glaciervault/app/repository"
	"github.com/glaciervault/glaciervault/internal/pkg/archive"
	"github.com/glaciervault/glaciervault/internal/pkg/billing"
	"github.com/glaciervault/glaciervault/internal/pkg/cache"
	"github.com/glaciervault/glaciervault/internal/pkg/database"
	"github.com/glaciervault/glaciervault/internal/pkg/env"
	"github.com/glaciervault/glaciervault/internal/pkg/payments"
	"github.com/glaciervault/glaciervault/internal/pkg/router"
	"github.com/glaciervault/glaciervault/internal/pkg/usage"
)

func main() {
	app := newApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func newApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	archiveCfg, err := archive.LoadConfig()
	if err != nil {
		log.Fatalf("archive config: %v", err)
	}
	store, err := archive.NewClient(archiveCfg)
	if err != nil {
		log.Fatalf("archive client: %v", err)
	}

	provider := payments.NewStripeProvider()
	billingService := billing.NewServiceFromDB(database.GetDB(), repos.User, provider)
	tracker := usage.NewTracker(repos.Usage, repos.User, repos.Photo, billingService)
	archiveService := archive.NewService(repos.Photo, store, tracker, archiveCfg)

	controllers.Initialize(archiveService, billingService, tracker, provider)

	app := fiber.New(fiber.Config{
		BodyLimit: 104857600, // 100 MiB
	})
	app.Use(recover.New(), logger.New())

	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	router.InstallRouter(app, billingService, tracker)

	return app
}
