// Package infra picks the storage backends named by the configuration.
package infra

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/infra/bigquery"
	"github.com/dvloznov/finance-overview/internal/infra/inmemory"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
	"github.com/dvloznov/finance-overview/internal/storage"
)

// OpenStore returns the record store selected by cfg.Store.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreBigQuery:
		s, err := bigquery.NewStore(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	case config.StoreMemory:
		log := logger.FromContext(ctx)
		log.Warn().Msg("Using in-memory store; data is lost on exit")
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown store %q", cfg.Store)
	}
}

// Documents is document storage that may hold a connection.
type Documents interface {
	storage.Documents
	Close() error
}

type memoryDocuments struct{ *storage.Memory }

func (memoryDocuments) Close() error { return nil }

// OpenDocuments returns Cloud Storage when a bucket is configured and an
// in-memory store otherwise.
func OpenDocuments(ctx context.Context, cfg *config.Config) (Documents, error) {
	if cfg.GCSBucket == "" {
		log := logger.FromContext(ctx)
		log.Warn().Msg("No GCS bucket configured; uploaded PDFs are kept in memory")
		return memoryDocuments{storage.NewMemory()}, nil
	}
	g, err := storage.NewGCS(ctx, cfg.GCSBucket)
	if err != nil {
		return nil, fmt.Errorf("OpenDocuments: %w", err)
	}
	return g, nil
}
