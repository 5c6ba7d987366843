package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the counters reported by one scrape run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	pageCache     *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	reconciled    *prometheus.CounterVec
	deletions     prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "requests_total",
		Help: "Catalog page requests by dispatcher and outcome",
	}, []string{"dispatcher", "outcome"})

	pageCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "page_cache_total",
		Help: "Page cache lookups by result",
	}, []string{"result"})

	parseFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parse_failures_total",
		Help: "Catalog text that could not be parsed, by kind",
	}, []string{"kind"})

	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courses_reconciled_total",
		Help: "Courses written by reconciliation, by outcome",
	}, []string{"outcome"})

	deletions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deletions_total",
		Help: "Course terms removed because the course was no longer listed",
	})

	registry.MustRegister(requests, pageCache, parseFailures, reconciled, deletions)

	return &Metrics{
		registry:      registry,
		requests:      requests,
		pageCache:     pageCache,
		parseFailures: parseFailures,
		reconciled:    reconciled,
		deletions:     deletions,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(dispatcher, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(dispatcher, outcome).Inc()
}

func (m *Metrics) ObservePageCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.pageCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ParseFailure(kind string) {
	if m == nil {
		return
	}
	m.parseFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Reconciled(outcome string, n int) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) Deleted(n int) {
	if m == nil {
		return
	}
	m.deletions.Add(float64(n))
}

// Push sends the registry to a pushgateway. An empty url is a no-op.
func (m *Metrics) Push(url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(m.registry).Push()
}
