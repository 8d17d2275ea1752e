package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// Error ids returned by the delivery service in the sys block of an error body.
const (
	ErrorIDNotFound           = "NotFound"
	ErrorIDAccessTokenInvalid = "AccessTokenInvalid"
	ErrorIDAccessDenied       = "AccessDenied"
	ErrorIDRateLimitExceeded  = "RateLimitExceeded"
	ErrorIDBadRequest         = "BadRequest"
	ErrorIDInvalidQuery       = "InvalidQuery"
	ErrorIDServerError        = "ServerError"
)

// APIError represents an error body returned by the delivery service.
type APIError struct {
	StatusCode int             `json:"-"                   yaml:"statusCode"`
	Sys        LinkSys         `json:"sys"                 yaml:"sys"`
	Message    string          `json:"message"             yaml:"message"`
	RequestID  string          `json:"requestId,omitempty" yaml:"requestId,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"   yaml:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status: %d)", e.Sys.ID, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Sys.ID, e.Message, e.StatusCode)
}

// ParseAPIError parses an error body. Bodies that are not a service error
// object still yield an APIError carrying the status and the raw text.
func ParseAPIError(statusCode int, data []byte) *APIError {
	apiErr := &APIError{}

	err := json.Unmarshal(data, apiErr)
	if err != nil || apiErr.Sys.ID == "" {
		apiErr = &APIError{
			Sys:     LinkSys{ID: errorIDForStatus(statusCode), Type: TypeError},
			Message: strings.TrimSpace(string(data)),
		}
	}

	apiErr.StatusCode = statusCode

	return apiErr
}

func errorIDForStatus(statusCode int) string {
	switch {
	case statusCode == http.StatusNotFound:
		return ErrorIDNotFound
	case statusCode == http.StatusUnauthorized:
		return ErrorIDAccessTokenInvalid
	case statusCode == http.StatusForbidden:
		return ErrorIDAccessDenied
	case statusCode == http.StatusTooManyRequests:
		return ErrorIDRateLimitExceeded
	case statusCode >= http.StatusInternalServerError:
		return ErrorIDServerError
	default:
		return ErrorIDBadRequest
	}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrEntryNotFound) {
		return true
	}

	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Sys.ID == ErrorIDNotFound || apiErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsUnauthorized checks if the error is an invalid or missing access token.
func IsUnauthorized(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Sys.ID == ErrorIDAccessTokenInvalid || apiErr.StatusCode == http.StatusUnauthorized
	}

	return false
}

// IsRateLimited checks if the error is a rate limit rejection.
func IsRateLimited(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Sys.ID == ErrorIDRateLimitExceeded || apiErr.StatusCode == http.StatusTooManyRequests
	}

	return false
}

// MaterializeError reports a value whose shape does not fit its target type.
type MaterializeError struct {
	// ID is the id of the resource being materialized.
	ID string
	// Path locates the value inside the resource, e.g. "fields.author.name".
	Path string
	Type reflect.Type
	Err  error
}

// Error implements the error interface.
func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materializing %s at %s into %v: %v", e.ID, e.Path, e.Type, e.Err)
}

// Unwrap returns the underlying decode or validation error.
func (e *MaterializeError) Unwrap() error {
	return e.Err
}

// Common static errors that can be wrapped with context.
var (
	ErrInvalidDocument           = errors.New("invalid delivery document")
	ErrUnknownResolvePolicy      = errors.New("unknown resolve policy")
	ErrInvalidContentTypeMapping = errors.New("invalid content type mapping")
	ErrNotRichText               = errors.New("value is not a rich text document")
	ErrUnknownNodeType           = errors.New("rich text node has no node type")
	ErrEntryNotFound             = errors.New("entry not found")
	ErrAssetNotFound             = errors.New("asset not found")
	ErrNilResolution             = errors.New("resolution is nil")
	ErrConfigRequired            = errors.New("config is required")
	ErrSpaceIDRequired           = errors.New("space ID is required")
	ErrAccessTokenRequired       = errors.New("access token is required")
	ErrNoMoreItems               = errors.New("no more items")
	ErrCircuitBreakerOpen        = errors.New("circuit breaker is open")
	ErrUnmappedContentType       = errors.New("no type mapped for content type")
)

// Cache errors.
var (
	ErrCacheKeyNotFound     = errors.New("key not found")
	ErrCacheEntryExpired    = errors.New("entry expired")
	ErrCacheDisabled        = errors.New("cache disabled")
	ErrNotFoundInAnyCache   = errors.New("key not found in any cache")
	ErrNATSConfigRequired   = errors.New("NATS configuration is required for NATS cache type")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrInvalidCacheTiers    = errors.New("invalid cache tiers")
)
