// Command worker re-runs invoice extraction for uploaded invoices that are
// still missing payment details, then exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/infra"
	"github.com/dvloznov/finance-overview/internal/invoiceparse"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/jobs/inmemory"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
)

func main() {
	invoiceID := flag.Int64("invoice", 0, "only re-parse this invoice")
	workers := flag.Int("workers", 2, "parallel extraction jobs")
	timeout := flag.Duration("timeout", 10*time.Minute, "give up after this long")
	dryRun := flag.Bool("dry-run", false, "list the invoices that would be re-parsed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	all, err := store.ListInvoices(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list invoices")
	}
	pending := selectPending(all, *invoiceID)
	log.Info().Int("invoices", len(pending)).Msg("Invoices needing extraction")

	if *dryRun || len(pending) == 0 {
		for _, inv := range pending {
			fmt.Printf("%d\t%s\t%s\n", inv.ID, inv.Issuer, inv.Filename)
		}
		return
	}

	docs, err := infra.OpenDocuments(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open document storage")
	}
	defer docs.Close()

	gemini, err := invoiceparse.NewGemini(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Gemini unavailable")
	}

	res, err := backfill(ctx, pending, invoiceparse.Handler(docs, store, gemini), *workers)
	if err != nil {
		log.Fatal().Err(err).Msg("Backfill aborted")
	}
	log.Info().Int("completed", res.Completed).Int("failed", res.Failed).Msg("Backfill finished")
	if res.Failed > 0 {
		os.Exit(1)
	}
}

// selectPending picks unpaid uploads whose routing details are incomplete.
// A non-zero only restricts the result to that invoice.
func selectPending(invoices []domain.Invoice, only int64) []domain.Invoice {
	var out []domain.Invoice
	for _, inv := range invoices {
		if only != 0 && inv.ID != only {
			continue
		}
		inv.Refresh()
		if inv.Paid() || !inv.NeedsCompletion || inv.Filename == "" {
			continue
		}
		out = append(out, inv)
	}
	return out
}

type result struct {
	Completed int
	Failed    int
}

// backfill publishes one parse job per invoice on an in-process queue and
// blocks until every job has reached a terminal state.
func backfill(ctx context.Context, invoices []domain.Invoice, handler jobs.Handler, workers int) (result, error) {
	log := logger.FromContext(ctx)
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(len(invoices)+1, store)
	queue.SetWorkers(workers)
	defer queue.Close()

	if err := queue.Start(ctx, handler); err != nil {
		return result{}, err
	}

	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		job := &jobs.Job{Type: jobs.JobTypeParseInvoice, InvoiceID: inv.ID, ObjectName: inv.Filename, MaxRetries: 1}
		if err := queue.Publish(ctx, job); err != nil {
			return result{}, fmt.Errorf("publish invoice %d: %w", inv.ID, err)
		}
		log.Debug().Int64("invoice_id", inv.ID).Str("job_id", job.JobID).Msg("Queued parse job")
		ids = append(ids, job.JobID)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		var res result
		for _, id := range ids {
			job, err := store.GetJob(ctx, id)
			if err != nil {
				return res, err
			}
			switch job.Status {
			case jobs.JobStatusCompleted:
				res.Completed++
			case jobs.JobStatusFailed:
				res.Failed++
			}
		}
		if res.Completed+res.Failed == len(ids) {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return res, queue.Stop(stopCtx)
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
}
