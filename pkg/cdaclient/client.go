// Package cdaclient provides the main entry point for creating content delivery API clients
package cdaclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cda-client/internal/client"
	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// New creates a new delivery API client. The config is copied; the caller's
// value is not modified.
func New(ctx context.Context, config *delivery.Config) (delivery.Client, error) {
	if config == nil {
		return nil, delivery.ErrConfigRequired
	}

	if config.SpaceID == "" {
		return nil, delivery.ErrSpaceIDRequired
	}

	normalized := *config
	normalized.BaseURL = normalizeBaseURL(config.BaseURL, config.Preview)

	if normalized.Environment == "" {
		normalized.Environment = constants.DefaultEnvironment
	}

	// The internal client implements the resource endpoints
	cli, err := client.New(&normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// normalizeBaseURL trims a trailing slash and adds https:// when the URL has
// no scheme. An empty URL selects the delivery or preview host.
func normalizeBaseURL(baseURL string, preview bool) string {
	if baseURL == "" {
		if preview {
			return constants.PreviewBaseURL
		}

		return constants.DefaultBaseURL
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

// NewWithToken creates a client for the master environment of a space on the
// delivery host.
func NewWithToken(ctx context.Context, spaceID, accessToken string) (delivery.Client, error) {
	if accessToken == "" {
		return nil, delivery.ErrAccessTokenRequired
	}

	return New(ctx, &delivery.Config{
		SpaceID:     spaceID,
		AccessToken: accessToken,
	})
}

// NewPreview creates a client that reads draft content from the preview host.
func NewPreview(ctx context.Context, spaceID, previewToken string) (delivery.Client, error) {
	if previewToken == "" {
		return nil, delivery.ErrAccessTokenRequired
	}

	return New(ctx, &delivery.Config{
		SpaceID:     spaceID,
		AccessToken: previewToken,
		Preview:     true,
	})
}
