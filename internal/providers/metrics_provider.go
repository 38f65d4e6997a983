package providers

import (
	"rsd/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncPollsTotal(provider, region, result string)
	ObservePollDuration(provider, region string, duration time.Duration)
	IncChangesTotal(provider, region string)
	IncEventsDelivered(region string)
	SetLeader(leader bool)
	SetConnectedClients(n int)
	SetSubscriptions(region string, n int)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	pollsTotal       *prometheus.CounterVec
	pollDuration     *prometheus.HistogramVec
	changesTotal     *prometheus.CounterVec
	eventsDelivered  *prometheus.CounterVec
	leader           prometheus.Gauge
	connectedClients prometheus.Gauge
	subscriptions    *prometheus.GaugeVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncPollsTotal(provider, region, result string) {
	m.pollsTotal.WithLabelValues(provider, region, result).Inc()
}

func (m *MetricsProvider) ObservePollDuration(provider, region string, duration time.Duration) {
	m.pollDuration.WithLabelValues(provider, region).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncChangesTotal(provider, region string) {
	m.changesTotal.WithLabelValues(provider, region).Inc()
}

func (m *MetricsProvider) IncEventsDelivered(region string) {
	m.eventsDelivered.WithLabelValues(region).Inc()
}

func (m *MetricsProvider) SetLeader(leader bool) {
	if leader {
		m.leader.Set(1)
	} else {
		m.leader.Set(0)
	}
}

func (m *MetricsProvider) SetConnectedClients(n int) {
	m.connectedClients.Set(float64(n))
}

func (m *MetricsProvider) SetSubscriptions(region string, n int) {
	m.subscriptions.WithLabelValues(region).Set(float64(n))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rsd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rsd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rsd_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rsd_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		pollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rsd_polls_total",
			Help: "Total number of source polls by result",
		}, []string{"provider", "region", "result"}),

		pollDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rsd_poll_duration_seconds",
			Help:    "Source poll duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "region"}),

		changesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rsd_changes_total",
			Help: "Total number of detected snapshot changes",
		}, []string{"provider", "region"}),

		eventsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rsd_events_delivered_total",
			Help: "Total number of update events delivered to subscribers",
		}, []string{"region"}),

		leader: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rsd_leader",
			Help: "1 when this instance holds the poller lease",
		}),

		connectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rsd_connected_clients",
			Help: "Current number of connected websocket clients",
		}),

		subscriptions: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rsd_subscriptions",
			Help: "Current number of subscriptions per region",
		}, []string{"region"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncPollsTotal(_, _, _ string)                     {}
func (n *noopMetrics) ObservePollDuration(_, _ string, _ time.Duration) {}
func (n *noopMetrics) IncChangesTotal(_, _ string)                      {}
func (n *noopMetrics) IncEventsDelivered(_ string)                      {}
func (n *noopMetrics) SetLeader(_ bool)                                 {}
func (n *noopMetrics) SetConnectedClients(_ int)                        {}
func (n *noopMetrics) SetSubscriptions(_ string, _ int)                 {}
