// Package metrics collects client-side Prometheus metrics for API calls,
// the query cache and cart mutations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the API client, query cache and storefront service report to.
type Recorder interface {
	RecordRequest(method, route string, status int, d time.Duration)
	RecordCacheHit(resource string)
	RecordCacheMiss(resource string)
	RecordCartMutation(op string)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cartMutations *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_api_requests_total",
			Help: "Storefront API requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shop_api_request_duration_seconds",
			Help:    "Storefront API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_query_cache_hits_total",
			Help: "Query cache reads served from a fresh entry.",
		}, []string{"resource"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_query_cache_misses_total",
			Help: "Query cache reads that required a fetch.",
		}, []string{"resource"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_cart_mutations_total",
			Help: "Optimistic cart mutations by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(c.requests, c.latency, c.cacheHits, c.cacheMisses, c.cartMutations)
	return c
}

// RecordRequest records one completed API request. status is 0 for
// transport failures.
func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordCacheHit records a fresh cache read.
func (c *Collector) RecordCacheHit(resource string) {
	c.cacheHits.WithLabelValues(resource).Inc()
}

// RecordCacheMiss records a cache read that triggered a fetch.
func (c *Collector) RecordCacheMiss(resource string) {
	c.cacheMisses.WithLabelValues(resource).Inc()
}

// RecordCartMutation records an optimistic cart mutation.
func (c *Collector) RecordCartMutation(op string) {
	c.cartMutations.WithLabelValues(op).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordCacheHit(string)                            {}
func (Nop) RecordCacheMiss(string)                           {}
func (Nop) RecordCartMutation(string)                        {}

// Handler returns an HTTP handler serving /metrics for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
