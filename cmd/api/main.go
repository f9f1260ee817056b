package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-overview/internal/api/handlers"
	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/bankfeed"
	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/emailscan"
	"github.com/dvloznov/finance-overview/internal/infra"
	"github.com/dvloznov/finance-overview/internal/invoiceparse"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/jobs/inmemory"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/reminder"
	"github.com/dvloznov/finance-overview/internal/repository"
	"github.com/dvloznov/finance-overview/internal/storage"
)

func main() {
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}
	log := logger.NewWithLevel(cfg.LogLevel)
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	docs, err := infra.OpenDocuments(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open document storage")
	}
	defer docs.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	scanner := newScanner(ctx, cfg, store)
	mux := jobs.Mux{
		jobs.JobTypeParseInvoice: parseHandler(ctx, cfg, docs, store),
		jobs.JobTypeScanEmails:   scanHandler(scanner),
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, mux.Handle); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	if scanner != nil {
		go reminder.Daily(workerCtx, "email-scan", cfg.ReminderHour, cfg.ReminderMinute, func(ctx context.Context) error {
			return jobQueue.Publish(ctx, &jobs.Job{Type: jobs.JobTypeScanEmails})
		})
	}
	if cfg.DiscordWebhook != "" {
		rem := reminder.New(store, reminder.NewDiscord(cfg.DiscordWebhook))
		go reminder.Daily(workerCtx, "due-reminder", cfg.ReminderHour, cfg.ReminderMinute, func(ctx context.Context) error {
			_, err := rem.Run(ctx)
			return err
		})
	} else {
		log.Warn().Msg("No DISCORD_WEBHOOK configured - due reminders are disabled")
	}

	bank := bankfeed.NewService(newFeed(log, cfg), store, store)

	router := handlers.NewRouter(cfg.APIRoot, handlers.Deps{
		Store:     store,
		Bank:      bank,
		Docs:      docs,
		Publisher: jobQueue,
		JobStore:  jobStore,
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(cfg.APIToken)(router),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("api_root", cfg.APIRoot).Str("store", cfg.Store).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newFeed prefers the GoCardless API, then a local export file. Without
// either the stored balance and transactions are served as they are.
func newFeed(log zerolog.Logger, cfg *config.Config) bankfeed.Feed {
	switch {
	case cfg.NordigenEnabled():
		log.Info().Msg("Bank feed: GoCardless")
		return bankfeed.NewGoCardless(bankfeed.DefaultGoCardlessURL, cfg.NordigenSecretID, cfg.NordigenSecretKey, cfg.NordigenAccountID)
	case cfg.BalanceFile != "":
		log.Info().Str("file", cfg.BalanceFile).Msg("Bank feed: file")
		return bankfeed.NewFile(cfg.BalanceFile)
	default:
		log.Warn().Msg("No bank feed configured - serving stored balance and transactions only")
		return nil
	}
}

func newScanner(ctx context.Context, cfg *config.Config, emails repository.EmailRepository) *emailscan.Scanner {
	log := logger.FromContext(ctx)
	if !cfg.GmailEnabled() {
		log.Warn().Msg("No Gmail credentials configured - email scanning is disabled")
		return nil
	}
	mailbox, err := emailscan.NewGmail(ctx, cfg.GmailCredentials, cfg.GmailToken)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to Gmail - email scanning is disabled")
		return nil
	}
	return emailscan.NewScanner(mailbox, emails)
}

func scanHandler(s *emailscan.Scanner) jobs.Handler {
	if s == nil {
		return func(ctx context.Context, job *jobs.Job) error {
			log := logger.FromContext(ctx)
			log.Warn().Str("job_id", job.JobID).Msg("Email scanning is not configured, skipping")
			return nil
		}
	}
	return emailscan.Handler(s)
}

// parseHandler extracts invoice fields with Gemini. Without a model client
// uploads stay as placeholders for manual completion.
func parseHandler(ctx context.Context, cfg *config.Config, docs storage.Documents, invoices repository.InvoiceRepository) jobs.Handler {
	log := logger.FromContext(ctx)
	gemini, err := invoiceparse.NewGemini(ctx, cfg.GeminiModel)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini unavailable - uploaded invoices need manual completion")
		return func(ctx context.Context, job *jobs.Job) error {
			log := logger.FromContext(ctx)
			log.Info().Int64("invoice_id", job.InvoiceID).Msg("Invoice extraction disabled, skipping")
			return nil
		}
	}
	return invoiceparse.Handler(docs, invoices, gemini)
}
