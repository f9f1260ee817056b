// Command ingest imports bank transactions and the current balance into the
// store, from a GoCardless account or an exported JSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finance-overview/internal/bankfeed"
	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/infra"
	"github.com/dvloznov/finance-overview/internal/logger"
)

func main() {
	file := flag.String("file", "", "bank export JSON (overrides BALANCE_FILE and GoCardless)")
	days := flag.Int("days", 90, "how many days back to import")
	fromFlag := flag.String("from", "", "first booking date, YYYY-MM-DD (overrides -days)")
	toFlag := flag.String("to", "", "last booking date, YYYY-MM-DD (default today)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	feed, err := pickFeed(cfg, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("No bank feed")
	}
	from, to, err := dateRange(domain.Today(), *days, *fromFlag, *toFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	log.Info().Str("from", from.String()).Str("to", to.String()).Msg("Starting ingestion")
	res, err := bankfeed.Import(ctx, feed, store, store, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Fetched %d transactions, %d new. Balance %s.\n", res.Fetched, res.Added, res.Balance.Amount.Display())
}

func pickFeed(cfg *config.Config, file string) (bankfeed.Feed, error) {
	switch {
	case file != "":
		return bankfeed.NewFile(file), nil
	case cfg.NordigenEnabled():
		return bankfeed.NewGoCardless(bankfeed.DefaultGoCardlessURL, cfg.NordigenSecretID, cfg.NordigenSecretKey, cfg.NordigenAccountID), nil
	case cfg.BalanceFile != "":
		return bankfeed.NewFile(cfg.BalanceFile), nil
	default:
		return nil, fmt.Errorf("set -file, BALANCE_FILE or the NORDIGEN_* credentials")
	}
}

func dateRange(today domain.Date, days int, from, to string) (domain.Date, domain.Date, error) {
	end := today
	if to != "" {
		d, err := domain.ParseDate(to)
		if err != nil {
			return domain.Date{}, domain.Date{}, err
		}
		end = d
	}
	start := end.AddDays(-days)
	if from != "" {
		d, err := domain.ParseDate(from)
		if err != nil {
			return domain.Date{}, domain.Date{}, err
		}
		start = d
	}
	if end.SortsBefore(start) {
		return domain.Date{}, domain.Date{}, fmt.Errorf("-to %s is before -from %s", end, start)
	}
	return start, end, nil
}
