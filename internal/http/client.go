package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// TokenSource supplies the bearer token of each request.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Client is a retrying HTTP client for the delivery API.
type Client struct {
	baseURL      string
	tokens       TokenSource
	httpClient   *retryablehttp.Client
	logger       delivery.Logger
	debug        bool
	userAgent    string
	interceptors *delivery.InterceptorChain
	cache        *delivery.CacheManager
	cacheTTL     time.Duration
	cacheScope   string
}

// Option configures a Client.
type Option func(*Client)

// Request describes one API call. An empty Method sends a GET.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// NewClient creates a client for baseURL. tokens may be nil for
// unauthenticated requests.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.CheckRetry = retryablehttp.DefaultRetryPolicy
	retryClient.Backoff = RateLimitBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: retryClient,
		userAgent:  constants.DefaultUserAgent,
		cacheTTL:   constants.DefaultCacheTTL,
	}

	if parsed, err := url.Parse(client.baseURL); err == nil {
		client.cacheScope = parsed.Host
	}

	retryClient.RequestLogHook = client.logRetry

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// WithLogger sets the logger.
func WithLogger(logger delivery.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets the retry count and backoff bounds.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *delivery.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithCache serves GET requests from cache and stores successful responses
// for ttl.
func WithCache(cache delivery.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		if cache == nil {
			return
		}

		c.cache = delivery.NewCacheManager(cache, nil)
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// CacheStats returns the response cache counters, or nil without a cache.
func (c *Client) CacheStats() *delivery.CacheStats {
	if c.cache == nil {
		return nil
	}

	return c.cache.GetStats()
}

// RateLimitBackoff waits for the rate limit window announced by the service
// on 429 responses and falls back to exponential backoff otherwise.
func RateLimitBackoff(waitMin, waitMax time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		seconds, err := strconv.Atoi(resp.Header.Get(constants.HeaderRateLimitReset))
		if err == nil && seconds >= 0 {
			wait := time.Duration(seconds) * time.Second

			return min(max(wait, waitMin), waitMax)
		}
	}

	return retryablehttp.DefaultBackoff(waitMin, waitMax, attemptNum, resp)
}

func (c *Client) logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 || c.logger == nil {
		return
	}

	c.logger.Warn("Retrying HTTP request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"attempt": attempt,
	})
}

// Do executes req. For responses with status 400 or above the response is
// returned together with a *delivery.APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	intercepted := &delivery.Request{
		Method:  method,
		Path:    req.Path,
		Query:   cloneValues(req.Query),
		Headers: make(http.Header),
	}

	for key, value := range req.Headers {
		intercepted.Headers.Set(key, value)
	}

	if c.interceptors != nil {
		err := c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}
	}

	cacheKey := ""
	if c.cache != nil && intercepted.Method == http.MethodGet {
		cacheKey = delivery.ScopedCacheKey(c.cacheScope, intercepted.Method, intercepted.Path, intercepted.Query)

		data, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			return c.cachedResponse(ctx, intercepted, data)
		}
	}

	resp, err := c.send(ctx, intercepted)
	if err != nil {
		c.runResponseInterceptors(ctx, intercepted, &delivery.Response{Error: err})

		return nil, err
	}

	var respErr error
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := delivery.ParseAPIError(resp.StatusCode, resp.Body)
		if apiErr.RequestID == "" {
			apiErr.RequestID = resp.Headers.Get(constants.HeaderServiceRequestID)
		}

		respErr = apiErr
	}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &delivery.Response{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Body,
			Error:      respErr,
		})
		if err != nil {
			return resp, err
		}
	}

	if respErr == nil && cacheKey != "" && c.cache.Policy().ShouldCache(intercepted.Method, intercepted.Path, resp.StatusCode) {
		err = c.cache.SetWithETag(ctx, cacheKey, resp.Body, resp.Headers.Get("ETag"), c.cacheTTL)
		if err != nil && c.logger != nil {
			c.logger.Warn("Failed to cache response", map[string]interface{}{
				"path":  intercepted.Path,
				"error": err.Error(),
			})
		}
	}

	return resp, respErr
}

func (c *Client) send(ctx context.Context, req *delivery.Request) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if c.tokens != nil {
		token, tokenErr := c.tokens.GetToken(ctx)
		if tokenErr != nil {
			return nil, fmt.Errorf("getting access token: %w", tokenErr)
		}

		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for key, values := range req.Headers {
		httpReq.Header[key] = values
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"url":      fullURL,
			"duration": time.Since(start).String(),
			"size":     len(data),
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       data,
	}, nil
}

func (c *Client) cachedResponse(ctx context.Context, req *delivery.Request, data []byte) (*Response, error) {
	headers := make(http.Header)
	headers.Set(constants.HeaderCache, constants.CacheHit)

	resp := &Response{StatusCode: http.StatusOK, Headers: headers, Body: data}

	if c.interceptors != nil {
		err := c.interceptors.ExecuteResponseInterceptors(ctx, req, &delivery.Response{
			StatusCode: resp.StatusCode,
			Headers:    headers,
			Body:       data,
		})
		if err != nil {
			return resp, err
		}
	}

	return resp, nil
}

func (c *Client) runResponseInterceptors(ctx context.Context, req *delivery.Request, resp *delivery.Response) {
	if c.interceptors == nil {
		return
	}

	_ = c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

func cloneValues(values url.Values) url.Values {
	if values == nil {
		return url.Values{}
	}

	return url.Values(http.Header(values).Clone())
}
