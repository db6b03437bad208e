package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/prasastio/kreasi/app/repository"
	"github.com/prasastio/kreasi/internal/pkg/billing"
	"github.com/prasastio/kreasi/internal/pkg/cache"
	"github.com/prasastio/kreasi/internal/pkg/constants"
	"github.com/prasastio/kreasi/internal/pkg/database"
	"github.com/prasastio/kreasi/internal/pkg/env"
	"github.com/prasastio/kreasi/internal/pkg/gateway"
	"github.com/prasastio/kreasi/internal/pkg/metrics/counter"
	"github.com/prasastio/kreasi/internal/pkg/router"
)

func main() {
	app := NewApplication()

	startBillingSweeps()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Find the correct base path
	basePath := ""
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, JSON API only
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsAPIRoute,
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

// startBillingSweeps runs the expiry and reconcile loops in the background.
// The expiry sweep closes abandoned checkouts and releases their promotion
// reservations; the reconcile sweep replays activation side effects for paid
// intents whose entitlement write never landed.
func startBillingSweeps() {
	checkoutTTL := time.Duration(env.GetEnvInt("CHECKOUT_TTL_MIN", 120)) * time.Minute
	interval := time.Duration(env.GetEnvInt("SWEEP_INTERVAL_MIN", 5)) * time.Minute

	svc := billing.NewServiceFromDB(
		database.GetDB(),
		gateway.NewClientFromEnv(),
		env.GetEnv("GATEWAY_SERVER_KEY", ""),
	)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

			if n, err := svc.ExpireStaleIntents(ctx, checkoutTTL, 500); err != nil {
				log.Printf("billing sweep: expire stale intents failed: %v", err)
			} else if n > 0 {
				log.Printf("billing sweep: expired %d stale checkout intents", n)
			}

			if n, err := svc.ReconcilePaidIntents(ctx, 500); err != nil {
				log.Printf("billing sweep: reconcile paid intents failed: %v", err)
			} else if n > 0 {
				log.Printf("billing sweep: reconciled %d paid intents", n)
			}

			if err := counter.FlushAll(); err != nil {
				log.Printf("content counter flush failed: %v", err)
			}

			cancel()
		}
	}()
}
