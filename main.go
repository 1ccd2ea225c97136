package main

import (
	"context"
	"os"

	"sublet-scraper/agent"
	"sublet-scraper/config"
	"sublet-scraper/notify"
	"sublet-scraper/scraper/craigslist"
	"sublet-scraper/services"
	"sublet-scraper/storage"
	"sublet-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Craigslist Sublet Monitor starting ===")
	logger.Info("Config — site: %s | area: %s | category: %s | max price: $%d | backend: %s",
		cfg.Site, cfg.Area, cfg.Category, cfg.MaxPrice, cfg.StoreBackend)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	clScraper := craigslist.New(cfg, logger)

	links, err := clScraper.Search()
	if err != nil {
		logger.Error("Search failed: %v", err)
		os.Exit(1)
	}
	if len(links) == 0 {
		logger.Warn("Search returned no listing links. Exiting.")
		return
	}

	pipeline := services.NewPipeline(store, clScraper, logger)
	inserted := pipeline.ProcessAll(links)

	statsSvc := services.NewStatsService(logger)
	if stats, err := statsSvc.Collect(store); err != nil {
		logger.Error("Stats collection failed: %v", err)
	} else {
		statsSvc.Print(stats)
	}

	if len(inserted) == 0 {
		logger.Info("No new listings this run.")
		return
	}

	if cfg.ReviewEnabled() {
		logger.Info("Reviewing %d new listings via %s", len(inserted), cfg.LLMModel)
		reviewer := agent.NewReviewer(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, logger)
		inserted = reviewer.ReviewAll(context.Background(), inserted)
	}

	if cfg.NotifyEnabled() {
		logger.Info("Notifying %s about %d new listings", cfg.NotifyToNumber, len(inserted))
		sender := notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
		notifier := notify.NewNotifier(sender, logger, cfg.NotifyToNumber, cfg.TwilioFromNumber, cfg.SMSDelayMs)
		notifier.NotifyAll(inserted)
	} else {
		logger.Info("SMS notification not configured, skipping")
	}

	logger.Info("Done — %d new listings stored", len(inserted))
}

// openStore picks the persistence backend from configuration.
func openStore(cfg *config.Config, logger *utils.Logger) (storage.Store, error) {
	if cfg.StoreBackend == "postgres" {
		logger.Info("Using PostgreSQL store at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
		return storage.NewPostgresStore(cfg.DSN())
	}
	logger.Info("Using file store — JSON: %s | CSV: %s/%s_*.csv",
		cfg.JSONStorePath, cfg.CSVDir, cfg.CSVPrefix)
	return storage.NewFileStore(cfg.JSONStorePath, cfg.CSVDir, cfg.CSVPrefix, cfg.RotationLimit), nil
}
