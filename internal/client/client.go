package client

import (
	"context"
	"errors"
	"net/url"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/internal/http"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired = errors.New("base URL is required")
)

// Client implements the delivery.Client interface for one space environment.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	spaceID     string
	environment string
	logger      delivery.Logger
	decode      []delivery.Option

	// Resource clients
	entries *EntriesClient
	assets  *AssetsClient
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *delivery.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.Cache != nil {
		httpOpts = append(httpOpts, http.WithCache(config.Cache, config.CacheTTL))
	}

	httpOpts = append(httpOpts, http.WithInterceptors(createInterceptorChain(config)))

	return httpOpts
}

// createInterceptorChain tags every request with an id, applies the client
// side rate limit and metrics, then runs the caller's interceptors.
func createInterceptorChain(config *delivery.Config) *delivery.InterceptorChain {
	chain := delivery.NewInterceptorChain()
	chain.AddRequestInterceptor(delivery.RequestIDInterceptor())

	if config.RequestsPerSecond > 0 {
		chain.AddRequestInterceptor(delivery.RateLimitInterceptor(config.RequestsPerSecond))
	}

	if config.Metrics != nil {
		config.Metrics.Install(chain)
	}

	if config.Interceptors != nil {
		chain.AddRequestInterceptor(config.Interceptors.ExecuteRequestInterceptors)
		chain.AddResponseInterceptor(config.Interceptors.ExecuteResponseInterceptors)
	}

	return chain
}

// createDecodeOptions maps the resolution settings of config to options.
func createDecodeOptions(config *delivery.Config) []delivery.Option {
	opts := []delivery.Option{delivery.WithResolvePolicy(config.ResolvePolicy)}

	if config.Logger != nil {
		opts = append(opts, delivery.WithLogger(config.Logger))
	}

	if config.Metrics != nil {
		opts = append(opts, delivery.WithResolutionObserver(config.Metrics))
	}

	return opts
}

// New creates a delivery client. config.BaseURL must already be normalized.
func New(config *delivery.Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	if config.SpaceID == "" {
		return nil, delivery.ErrSpaceIDRequired
	}

	var tokens http.TokenSource
	if config.AccessToken != "" {
		tokens = &staticTokenSource{token: config.AccessToken}
	}

	return NewWithTokenSource(config, tokens)
}

// NewWithTokenSource creates a delivery client with a custom token source.
func NewWithTokenSource(config *delivery.Config, tokens http.TokenSource) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	if config.SpaceID == "" {
		return nil, delivery.ErrSpaceIDRequired
	}

	environment := config.Environment
	if environment == "" {
		environment = constants.DefaultEnvironment
	}

	httpClient := http.NewClient(config.BaseURL, tokens, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient:  httpClient,
		baseURL:     config.BaseURL,
		spaceID:     config.SpaceID,
		environment: environment,
		logger:      config.Logger,
		decode:      createDecodeOptions(config),
	}

	client.initializeResourceClients()

	return client, nil
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	basePath := environmentPath(c.spaceID, c.environment)

	c.entries = NewEntriesClient(c.httpClient, basePath)
	c.assets = NewAssetsClient(c.httpClient, basePath)
}

func environmentPath(spaceID, environment string) string {
	return "/spaces/" + url.PathEscape(spaceID) + "/environments/" + url.PathEscape(environment)
}

// Entries implements delivery.Client.Entries.
func (c *Client) Entries() delivery.EntriesClient {
	return c.entries
}

// Assets implements delivery.Client.Assets.
func (c *Client) Assets() delivery.AssetsClient {
	return c.assets
}

// DecodeOptions implements delivery.Client.DecodeOptions.
func (c *Client) DecodeOptions() []delivery.Option {
	return append([]delivery.Option(nil), c.decode...)
}

// SpaceID returns the space the client reads from.
func (c *Client) SpaceID() string {
	return c.spaceID
}

// Environment returns the space environment the client reads from.
func (c *Client) Environment() string {
	return c.environment
}

// BaseURL returns the API host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CacheStats returns the response cache counters, or nil without a cache.
func (c *Client) CacheStats() *delivery.CacheStats {
	return c.httpClient.CacheStats()
}

// staticTokenSource provides a static token.
type staticTokenSource struct {
	token string
}

func (s *staticTokenSource) GetToken(ctx context.Context) (string, error) {
	return s.token, nil
}
