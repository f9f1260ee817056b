package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/infra"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/notionsync"
)

func main() {
	notionToken := flag.String("notion-token", "", "Notion API token (defaults to NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (defaults to NOTION_DB_ID)")
	todayStr := flag.String("today", "", "Date used for due-date urgency in YYYY-MM-DD format (defaults to today)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	if *notionToken != "" {
		cfg.NotionToken = *notionToken
	}
	if *notionDBID != "" {
		cfg.NotionDBID = *notionDBID
	}
	if err := cfg.ValidateNotion(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	today := domain.Today()
	if *todayStr != "" {
		today, err = domain.ParseDate(*todayStr)
		if err != nil {
			log.Fatal().Err(err).Str("today", *todayStr).Msg("Error: invalid today format, expected YYYY-MM-DD")
		}
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("store", cfg.Store).
		Str("today", today.String()).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	res, err := notionsync.SyncInvoices(ctx, store, notionsync.NewClient(cfg.NotionToken), cfg.NotionDBID, today, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d failed.\n", res.Created, res.Updated, res.Deleted, res.Failed)
}
