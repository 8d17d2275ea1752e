package delivery

import (
	"context"
	"time"
)

// EntriesClient reads entries of one space environment.
type EntriesClient interface {
	// List returns one page of entries with their includes.
	List(ctx context.Context, params *QueryParams) (*Document, error)
	// Get returns a single entry as a one-item document that carries the
	// includes of its links.
	Get(ctx context.Context, id string, params *QueryParams) (*Document, error)
}

// AssetsClient reads assets of one space environment.
type AssetsClient interface {
	List(ctx context.Context, params *QueryParams) (*Document, error)
	Get(ctx context.Context, id string, params *QueryParams) (*Document, error)
}

// Client is a delivery API client.
type Client interface {
	Entries() EntriesClient
	Assets() AssetsClient

	// DecodeOptions returns the resolution and materialization options
	// configured on the client, for use with Resolve, Materialize and the
	// Get helpers.
	DecodeOptions() []Option
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a delivery Client.
//
// # Hosts
//
// BaseURL defaults to the delivery host. When Preview is set and BaseURL is
// empty the preview host is used instead, which serves draft content and
// expects a preview token.
//
// # Resolution
//
// ResolvePolicy, Logger and Metrics flow into DecodeOptions so that pages
// fetched through the client resolve with the same settings.
type Config struct {
	// Required fields
	// SpaceID: the space that owns the content.
	SpaceID string
	// AccessToken: delivery or preview token sent as a Bearer token.
	AccessToken string

	// Optional configurations
	// Environment: space environment, "master" when empty.
	Environment string
	// BaseURL: API host, normalized by trimming a trailing slash and adding
	// "https://" if no scheme is present.
	BaseURL string
	// Preview: select the preview host when BaseURL is empty.
	Preview bool
	// HTTPTimeout: per-attempt HTTP timeout.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures (>=500, 429,
	// and connection errors). If 0, a sensible default is used by the client.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and the resolver.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// Cache: optional response cache for GET requests.
	Cache Cache
	// CacheTTL: lifetime of cached responses; five minutes when 0.
	CacheTTL time.Duration
	// RequestsPerSecond: client-side rate limit; 0 disables it.
	RequestsPerSecond int
	// Interceptors: additional request and response interceptors.
	Interceptors *InterceptorChain
	// ResolvePolicy: eagerness of link resolution for fetched documents.
	ResolvePolicy ResolvePolicy
	// Metrics: optional Prometheus collectors for traffic and resolution.
	Metrics *PrometheusMetrics
}
