package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHooks implements every hook interface with Prometheus metrics on
// a private registry, so that several instances (one per test) never clash on
// registration.
type PrometheusHooks struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
	patches      *prometheus.CounterVec
	unconverged  *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	cacheEvents  *prometheus.CounterVec
	cacheBytes   prometheus.Counter
	enqueued     prometheus.Counter
	pending      prometheus.Gauge
	flushes      *prometheus.CounterVec
	flushSize    prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var (
	_ EngineHooks  = (*PrometheusHooks)(nil)
	_ CacheHooks   = (*PrometheusHooks)(nil)
	_ PersistHooks = (*PrometheusHooks)(nil)
	_ HTTPHooks    = (*PrometheusHooks)(nil)
)

// NewPrometheusHooks creates the metrics under namespace and registers them on
// a fresh registry.
func NewPrometheusHooks(namespace string) *PrometheusHooks {
	p := &PrometheusHooks{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_operations_total",
			Help:      "Total number of layout operations",
		}, []string{"op"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_operation_duration_seconds",
			Help:      "Layout operation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"op"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_patches_total",
			Help:      "Total number of node patches produced",
		}, []string{"op"}),
		unconverged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collision_unconverged_total",
			Help:      "Collision runs that hit their iteration bound",
		}, []string{"op"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mesh_fallbacks_total",
			Help:      "Placements that fell back below all content",
		}, []string{"op"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups and writes",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}),
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_enqueued_patches_total",
			Help:      "Patches accepted by the persistence batcher",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "persist_pending_nodes",
			Help:      "Nodes waiting in the current batch",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_flushes_total",
			Help:      "Batches handed to the store",
		}, []string{"status"}),
		flushSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_flush_patches",
			Help:      "Patches per flushed batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	p.registry.MustRegister(
		p.operations, p.opDuration, p.patches, p.unconverged, p.fallbacks,
		p.cacheEvents, p.cacheBytes,
		p.enqueued, p.pending, p.flushes, p.flushSize,
		p.httpRequests, p.httpDuration,
	)
	return p
}

// Registry returns the registry holding the metrics.
func (p *PrometheusHooks) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusHooks) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Register installs p as the engine, cache, persistence and HTTP hooks.
func (p *PrometheusHooks) Register() {
	SetEngineHooks(p)
	SetCacheHooks(p)
	SetPersistHooks(p)
	SetHTTPHooks(p)
}

func (p *PrometheusHooks) OnOperation(op string, _, patches int, d time.Duration) {
	p.operations.WithLabelValues(op).Inc()
	p.opDuration.WithLabelValues(op).Observe(d.Seconds())
	p.patches.WithLabelValues(op).Add(float64(patches))
}

func (p *PrometheusHooks) OnUnconverged(op, _ string, _ int) {
	p.unconverged.WithLabelValues(op).Inc()
}

func (p *PrometheusHooks) OnMeshFallback(op, _ string) {
	p.fallbacks.WithLabelValues(op).Inc()
}

func (p *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

func (p *PrometheusHooks) OnEnqueue(_ context.Context, patches, pending int) {
	p.enqueued.Add(float64(patches))
	p.pending.Set(float64(pending))
}

func (p *PrometheusHooks) OnFlush(_ context.Context, _ string, patches int, _ time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.flushes.WithLabelValues(status).Inc()
	p.flushSize.Observe(float64(patches))
	if err == nil {
		p.pending.Set(0)
	}
}

func (p *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (p *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
