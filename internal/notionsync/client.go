package notionsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jomei/notionapi"
)

const maxRetries = 4

// NotionClient implements NotionService with jomei/notionapi. Rate-limited
// and server-side failures are retried with exponential backoff.
type NotionClient struct {
	client     *notionapi.Client
	newBackOff func() backoff.BackOff
}

// NewNotionClient creates a client authenticated with an integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(b, maxRetries)
		},
	}
}

// CreatePage creates a page in databaseID.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := retry(ctx, n.newBackOff(), func() (*notionapi.Page, error) {
		return n.client.Page.Create(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// UpdatePage replaces the given properties on pageID.
func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageUpdateRequest{Properties: properties}

	page, err := retry(ctx, n.newBackOff(), func() (*notionapi.Page, error) {
		return n.client.Page.Update(ctx, notionapi.PageID(pageID), req)
	})
	if err != nil {
		return nil, fmt.Errorf("UpdatePage: %w", err)
	}
	return page, nil
}

// QueryDatabase runs one page of a database query.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := retry(ctx, n.newBackOff(), func() (*notionapi.DatabaseQueryResponse, error) {
		return n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	})
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: %w", err)
	}
	return resp, nil
}

func retry[T any](ctx context.Context, b backoff.BackOff, op func() (T, error)) (T, error) {
	var result T
	err := backoff.Retry(func() error {
		r, err := op()
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}, backoff.WithContext(b, ctx))
	return result, err
}

// retryable reports whether a Notion API error is worth another attempt.
func retryable(err error) bool {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}
	// Transport failures carry no status.
	return true
}
