package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/cda-client/internal/http"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// EntriesClient implements delivery.EntriesClient.
type EntriesClient struct {
	httpClient *http.Client
	basePath   string
}

// NewEntriesClient creates a new entries client for the environment at basePath.
func NewEntriesClient(httpClient *http.Client, basePath string) *EntriesClient {
	return &EntriesClient{
		httpClient: httpClient,
		basePath:   basePath,
	}
}

// List implements delivery.EntriesClient.List.
func (c *EntriesClient) List(ctx context.Context, params *delivery.QueryParams) (*delivery.Document, error) {
	path := c.basePath + "/entries"

	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	doc, err := delivery.ParseDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing entries list: %w", err)
	}

	return doc, nil
}

// Get implements delivery.EntriesClient.Get. It queries the collection by
// sys.id because the single-entry endpoint does not return includes.
func (c *EntriesClient) Get(ctx context.Context, id string, params *delivery.QueryParams) (*delivery.Document, error) {
	return c.List(ctx, params.Clone().WithSkip(0).WithLimit(1).WithIDs(id))
}
