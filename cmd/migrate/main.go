package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/migrations"
)

var (
	projectID     = flag.String("project", "", "GCP project ID (defaults to GCP_PROJECT)")
	datasetID     = flag.String("dataset", "", "BigQuery dataset ID (defaults to BQ_DATASET)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Read migrations from this directory instead of the embedded set")
	dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	if *projectID != "" {
		cfg.GCPProject = *projectID
	}
	if *datasetID != "" {
		cfg.BQDataset = *datasetID
	}
	if err := cfg.ValidateMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	fsys, dir := source(*migrationsDir)
	all, err := migrations.Load(fsys, dir, cfg.GCPProject, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}

	client, err := bigquery.NewClient(ctx, cfg.GCPProject)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().
		Str("project", cfg.GCPProject).
		Str("dataset", cfg.BQDataset).
		Int("files", len(all)).
		Msg("Connected to BigQuery")

	runner := migrations.NewRunner(client, cfg.GCPProject, cfg.BQDataset, *appliedBy)

	if *dryRun {
		applied, err := runner.Applied(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list applied migrations")
		}
		for _, m := range migrations.Pending(all, applied) {
			log.Info().Int("version", m.Version).Str("name", m.Name).Msg("[DRY RUN] Would apply")
		}
		return
	}

	n, err := runner.Up(ctx, all)
	if err != nil {
		log.Fatal().Err(err).Int("applied", n).Msg("Migration failed")
	}
	if n == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}
	log.Info().Int("applied", n).Msg("Migrations applied")
}

// source picks the embedded migrations unless a directory is given.
func source(dir string) (fs.FS, string) {
	if dir == "" {
		return migrations.FS(), migrations.Dir
	}
	return os.DirFS(dir), "."
}
