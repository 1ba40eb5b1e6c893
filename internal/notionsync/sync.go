// Package notionsync mirrors expenses into a Notion database. Pages are
// keyed by the "Expense ID" property so repeated syncs update in place.
package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/logger"
	"github.com/zenspend/zenspend/internal/storage"
)

const queryPageSize = 100

// SyncStats summarises a bulk sync.
type SyncStats struct {
	Created int
	Updated int
	Failed  int
}

// Syncer writes expenses to one Notion database.
type Syncer struct {
	client     NotionService
	databaseID string
	dryRun     bool
}

// NewSyncer returns a Syncer. With dryRun set no page is written.
func NewSyncer(client NotionService, databaseID string, dryRun bool) *Syncer {
	return &Syncer{client: client, databaseID: databaseID, dryRun: dryRun}
}

// SyncExpense creates the page for e, or updates it when a page with the
// same Expense ID already exists. It returns the page id.
func (s *Syncer) SyncExpense(ctx context.Context, e *domain.Expense) (string, error) {
	log := logger.FromContext(ctx).With().Str("expense_id", e.ID).Logger()

	resp, err := s.client.QueryDatabase(ctx, s.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropExpenseID,
			RichText: &notionapi.TextFilterCondition{Equals: e.ID},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", fmt.Errorf("SyncExpense: lookup %s: %w", e.ID, err)
	}

	var existing string
	if len(resp.Results) > 0 {
		existing = string(resp.Results[0].ID)
	}
	return s.write(ctx, log.With().Str("page_id", existing).Logger(), e, existing)
}

// SyncExpenses pushes every expense dated within [from, to] to Notion.
// Failures on individual expenses are logged and counted, not returned.
func (s *Syncer) SyncExpenses(ctx context.Context, repo storage.ExpenseRepository, from, to *civil.Date) (SyncStats, error) {
	log := logger.FromContext(ctx)

	expenses, err := repo.ListExpenses(ctx, domain.ExpenseFilter{From: from, To: to})
	if err != nil {
		return SyncStats{}, fmt.Errorf("SyncExpenses: list expenses: %w", err)
	}
	log.Info().Int("expense_count", len(expenses)).Bool("dry_run", s.dryRun).Msg("Starting expense sync to Notion")

	pages, err := queryAllNotionPages(ctx, s.client, s.databaseID)
	if err != nil {
		return SyncStats{}, fmt.Errorf("SyncExpenses: %w", err)
	}

	pageByExpense := make(map[string]string, len(pages))
	for _, p := range pages {
		if id := extractExpenseID(p); id != "" {
			pageByExpense[id] = string(p.ID)
		}
	}

	var stats SyncStats
	for _, e := range expenses {
		pageID := pageByExpense[e.ID]
		elog := log.With().Str("expense_id", e.ID).Str("page_id", pageID).Logger()
		if _, err := s.write(ctx, elog, e, pageID); err != nil {
			elog.Warn().Err(err).Msg("Failed to sync expense")
			stats.Failed++
			continue
		}
		if pageID == "" {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("failed", stats.Failed).
		Msg("Expense sync completed")
	return stats, nil
}

func (s *Syncer) write(ctx context.Context, log zerolog.Logger, e *domain.Expense, pageID string) (string, error) {
	props := ExpenseToNotionProperties(e)

	if s.dryRun {
		if pageID != "" {
			log.Info().Msg("[DRY RUN] Would update Notion page")
		} else {
			log.Info().Msg("[DRY RUN] Would create Notion page")
		}
		return pageID, nil
	}

	if pageID != "" {
		if _, err := s.client.UpdatePage(ctx, pageID, props); err != nil {
			return "", err
		}
		log.Debug().Msg("Updated Notion page")
		return pageID, nil
	}

	page, err := s.client.CreatePage(ctx, s.databaseID, props)
	if err != nil {
		return "", err
	}
	log.Debug().Str("new_page_id", string(page.ID)).Msg("Created Notion page")
	return string(page.ID), nil
}

// queryAllNotionPages follows the query cursor until every page is read.
func queryAllNotionPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var (
		all    []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: queryPageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
