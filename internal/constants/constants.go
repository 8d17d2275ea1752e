package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Delivery service endpoints.
const (
	// DefaultBaseURL is the content delivery host.
	DefaultBaseURL = "https://cdn.contentful.com"

	// PreviewBaseURL is the content preview host serving drafts.
	PreviewBaseURL = "https://preview.contentful.com"

	// DefaultEnvironment is used when no environment is configured.
	DefaultEnvironment = "master"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and concurrency limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// LowRetryMax is used for operations that should retry fewer times.
	LowRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second

	// DefaultConcurrencyLimit limits concurrent page fetches.
	DefaultConcurrencyLimit = 3
)

// Circuit breaker defaults.
const (
	// CircuitBreakerThreshold is the number of failures before the circuit opens.
	CircuitBreakerThreshold = 5

	// CircuitBreakerTimeout is how long an open circuit rejects requests.
	CircuitBreakerTimeout = 30 * time.Second

	// CircuitBreakerSuccessThreshold is the number of half-open successes that close it.
	CircuitBreakerSuccessThreshold = 2

	// StatusOpen marks an open circuit.
	StatusOpen = "open"

	// StatusHalfOpen marks a circuit probing for recovery.
	StatusHalfOpen = "half-open"

	// StatusClosed marks a healthy circuit.
	StatusClosed = "closed"
)

// Headers exchanged with the delivery service.
const (
	// HeaderRateLimitReset carries the seconds until the rate limit window resets.
	HeaderRateLimitReset = "X-Contentful-RateLimit-Reset"

	// HeaderRequestID is the request correlation header.
	HeaderRequestID = "X-Request-Id"

	// HeaderServiceRequestID is the id the service assigns to each request.
	HeaderServiceRequestID = "X-Contentful-Request-Id"

	// CacheHit is the HeaderCache value of a response served from cache.
	CacheHit = "HIT"

	// HeaderCache marks responses served from the local cache.
	HeaderCache = "X-Cache"

	// DefaultUserAgent is sent unless overridden by configuration.
	DefaultUserAgent = "cda-client-go/1.0"
)

// Query limits.
const (
	// DefaultPageLimit is the page size requested when none is given.
	DefaultPageLimit = 100

	// MaxPageLimit is the largest page the service returns.
	MaxPageLimit = 1000

	// MaxIncludeDepth is the deepest link level the service embeds in includes.
	MaxIncludeDepth = 10
)

// Cache defaults.
const (
	// DefaultCacheSize is the default number of entries kept in memory.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is how long cached responses stay valid.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultNATSBucket is the KV bucket used by the NATS cache backend.
	DefaultNATSBucket = "cda_responses"
)

// UI and display constants.
const (
	// NotAvailable is printed for missing values.
	NotAvailable = "N/A"

	// MaskedSecret replaces secrets in printed configuration.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatTable is the tabular output format.
	FormatTable = "table"

	// FormatJSON is the JSON output format.
	FormatJSON = "json"

	// FormatYAML is the YAML output format.
	FormatYAML = "yaml"

	// FormatDump is the cycle-safe debug dump format.
	FormatDump = "dump"
)
