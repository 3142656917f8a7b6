package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records the storefront client's cache, sync, and API behaviour.
// A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	catalog  *prometheus.CounterVec
	cartSync *prometheus.CounterVec
	requests *prometheus.HistogramVec
}

// NewClientMetrics registers the client metrics on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	catalog := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_cache_total",
		Help: "Catalog cache lookups by result (hit, miss, fetch_error).",
	}, []string{"result"})
	cartSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_sync_total",
		Help: "Cart sync attempts by outcome.",
	}, []string{"outcome"})
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_api_request_duration_seconds",
		Help:    "Duration of storefront API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})
	reg.MustRegister(catalog, cartSync, requests)
	return &ClientMetrics{
		catalog:  catalog,
		cartSync: cartSync,
		requests: requests,
	}
}

// CatalogResult counts a catalog cache lookup outcome.
func (c *ClientMetrics) CatalogResult(result string) {
	if c == nil || c.catalog == nil {
		return
	}
	c.catalog.WithLabelValues(normalizeLabel(result)).Inc()
}

// CartSync counts a cart sync outcome (success, failure, skipped_*).
func (c *ClientMetrics) CartSync(outcome string) {
	if c == nil || c.cartSync == nil {
		return
	}
	c.cartSync.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveRequest records an API request. status 0 means the request never got a response.
func (c *ClientMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	if c == nil || c.requests == nil {
		return
	}
	c.requests.WithLabelValues(normalizeLabel(endpoint), statusClass(status)).Observe(duration.Seconds())
}

func statusClass(status int) string {
	if status <= 0 {
		return "transport_error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
