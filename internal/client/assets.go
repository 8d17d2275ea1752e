package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/cda-client/internal/http"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// AssetsClient implements delivery.AssetsClient.
type AssetsClient struct {
	httpClient *http.Client
	basePath   string
}

// NewAssetsClient creates a new assets client for the environment at basePath.
func NewAssetsClient(httpClient *http.Client, basePath string) *AssetsClient {
	return &AssetsClient{
		httpClient: httpClient,
		basePath:   basePath,
	}
}

// List implements delivery.AssetsClient.List.
func (c *AssetsClient) List(ctx context.Context, params *delivery.QueryParams) (*delivery.Document, error) {
	path := c.basePath + "/assets"

	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	doc, err := delivery.ParseDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing assets list: %w", err)
	}

	return doc, nil
}

// Get implements delivery.AssetsClient.Get.
func (c *AssetsClient) Get(ctx context.Context, id string, params *delivery.QueryParams) (*delivery.Document, error) {
	path := c.basePath + "/assets/" + url.PathEscape(id)

	var queryParams url.Values
	if params != nil && params.Locale != "" {
		queryParams = url.Values{"locale": []string{params.Locale}}
	}

	resp, err := c.httpClient.Get(ctx, path, queryParams)
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}

	doc, err := delivery.ParseDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing asset: %w", err)
	}

	return doc, nil
}
