package delivery

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fivetwenty-io/cda-client/internal/constants"
)

const metricsStartKey = "metrics_start"

// PrometheusMetrics records delivery traffic and link resolution outcomes.
// It serves as an interceptor pair for the transport and as a
// ResolutionObserver for the resolver.
type PrometheusMetrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cacheHits  prometheus.Counter
	unresolved *prometheus.CounterVec
	expanded   prometheus.Histogram
}

// NewPrometheusMetrics registers the collectors with reg. A nil reg selects
// the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &PrometheusMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cda_requests_total",
			Help: "Delivery API requests by method and status code",
		}, []string{"method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cda_request_duration_seconds",
			Help:    "Delivery API request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cda_cache_hits_total",
			Help: "Responses served from the local cache",
		}),
		unresolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cda_unresolved_links_total",
			Help: "Links whose target was missing from the document",
		}, []string{"link_type", "reason"}),
		expanded: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cda_resolved_resources",
			Help:    "Distinct resources expanded per resolved document",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// RequestInterceptor stamps the request start time.
func (m *PrometheusMetrics) RequestInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metricsStartKey] = time.Now()

		return nil
	}
}

// ResponseInterceptor counts the response and observes its latency.
func (m *PrometheusMetrics) ResponseInterceptor() ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		m.requests.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.Headers != nil && resp.Headers.Get(constants.HeaderCache) == constants.CacheHit {
			m.cacheHits.Inc()
		}

		if start, ok := req.Metadata[metricsStartKey].(time.Time); ok {
			m.duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
		}

		return nil
	}
}

// Install adds both interceptors to chain.
func (m *PrometheusMetrics) Install(chain *InterceptorChain) {
	chain.AddRequestInterceptor(m.RequestInterceptor())
	chain.AddResponseInterceptor(m.ResponseInterceptor())
}

// ObserveResolution implements ResolutionObserver.
func (m *PrometheusMetrics) ObserveResolution(res *Resolution) {
	m.expanded.Observe(float64(res.Expanded))

	for _, resErr := range res.Errors {
		m.unresolved.WithLabelValues(resErr.LinkType, resErr.Reason).Inc()
	}
}
