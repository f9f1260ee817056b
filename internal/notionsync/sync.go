package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// Result counts what a sync did (or would do, on a dry run).
type Result struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// SyncInvoices mirrors stored invoices into a Notion database:
// 1. Queries all existing pages
// 2. Archives pages whose invoice no longer exists (or that carry no id)
// 3. Updates pages of known invoices and creates pages for new ones
// Individual page failures are logged and counted, not returned.
func SyncInvoices(ctx context.Context, repo repository.InvoiceRepository, notionClient NotionService, notionDBID string, today domain.Date, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	log.Info().Bool("dry_run", dryRun).Msg("Starting invoice sync to Notion")

	invoices, err := repo.ListInvoices(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list invoices: %w", err)
	}
	valid := make(map[int64]bool, len(invoices))
	for _, inv := range invoices {
		valid[inv.ID] = true
	}

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return res, fmt.Errorf("failed to query Notion pages: %w", err)
	}
	log.Info().
		Int("invoice_count", len(invoices)).
		Int("notion_page_count", len(pages)).
		Msg("Retrieved invoices and existing Notion pages")

	pageByInvoice := make(map[int64]string)
	for _, page := range pages {
		id := extractInvoiceID(page)
		if id != 0 && valid[id] {
			if _, dup := pageByInvoice[id]; !dup {
				pageByInvoice[id] = string(page.ID)
				continue
			}
		}
		// Stale, unidentified or duplicate page.
		plog := log.With().Int64("invoice_id", id).Str("page_id", string(page.ID)).Logger()
		if dryRun {
			plog.Info().Msg("[DRY RUN] Would delete stale Notion page")
			res.Deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			plog.Warn().Err(err).Msg("Failed to delete stale Notion page")
			res.Failed++
			continue
		}
		res.Deleted++
	}

	for _, inv := range invoices {
		plog := log.With().Int64("invoice_id", inv.ID).Logger()
		pageID, exists := pageByInvoice[inv.ID]

		if dryRun {
			if exists {
				plog.Info().Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				res.Updated++
			} else {
				plog.Info().Msg("[DRY RUN] Would create Notion page")
				res.Created++
			}
			continue
		}

		props := InvoiceToNotionProperties(inv, today)
		if exists {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				plog.Warn().Err(err).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}
		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			plog.Warn().Err(err).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		plog.Debug().Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("Invoice sync completed")
	return res, nil
}

// queryAllNotionPages follows the cursor through every page of the database.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return allPages, nil
}
