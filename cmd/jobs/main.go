package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/glaciervault/glaciervault/app/repository"
	"github.com/glaciervault/glaciervault/internal/pkg/archive"
	"github.com/glaciervault/glaciervault/internal/pkg/billing"
	"github.com/glaciervault/glaciervault/internal/pkg/cache"
	"github.com/glaciervault/glaciervault/internal/pkg/database"
	"github.com/glaciervault/glaciervault/internal/pkg/env"
	"github.com/glaciervault/glaciervault/internal/pkg/jobs"
	"github.com/glaciervault/glaciervault/internal/pkg/metrics/counter"
	"github.com/glaciervault/glaciervault/internal/pkg/payments"
	"github.com/glaciervault/glaciervault/internal/pkg/usage"
)

// Scheduled jobs are external entry points (cron-driven), not in-process
// tickers, so a crashed run is repaired by simply invoking it again.
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	provider := payments.NewStripeProvider()
	billingService := billing.NewServiceFromDB(database.GetDB(), repos.User, provider)
	tracker := usage.NewTracker(repos.Usage, repos.User, repos.Photo, billingService)

	ctx := context.Background()

	switch os.Args[1] {
	case "daily-usage":
		cache.SetupCache()
		if err := counter.FlushAll(); err != nil {
			log.Printf("counter flush: %v", err)
		}
		for _, err := range jobs.NewRestoreExpiry(repos.Photo).Run() {
			log.Printf("restore expiry: %v", err)
		}
		if err := tracker.RecordDailyUsage(); err != nil {
			log.Fatalf("daily usage: %v", err)
		}
	case "monthly-billing":
		if errs := tracker.ExecuteMonthlyBilling(ctx); len(errs) > 0 {
			for _, err := range errs {
				log.Printf("monthly billing: %v", err)
			}
			os.Exit(1)
		}
	case "cleanup":
		archiveCfg, err := archive.LoadConfig()
		if err != nil {
			log.Fatalf("archive config: %v", err)
		}
		store, err := archive.NewClient(archiveCfg)
		if err != nil {
			log.Fatalf("archive client: %v", err)
		}
		cleanup := jobs.NewCleanup(repos.User, store, archiveCfg)
		if errs := cleanup.Run(ctx); len(errs) > 0 {
			for _, err := range errs {
				log.Printf("cleanup: %v", err)
			}
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: jobs <command>")
	fmt.Println("Commands:")
	fmt.Println("  daily-usage      sweep lapsed restores and record today's storage usage")
	fmt.Println("  monthly-billing  invoice the prior calendar month")
	fmt.Println("  cleanup          delete accounts past their deletion deadline")
}
