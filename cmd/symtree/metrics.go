package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
)

// metrics instruments forest builds and the HTTP API. A nil *metrics
// records nothing.
type metrics struct {
	requests *prometheus.CounterVec
	builds   *prometheus.HistogramVec
	failures *prometheus.CounterVec
	nodes    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "symtree_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		builds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "symtree_forest_build_seconds",
			Help:    "Time to load catalogs and build a forest.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "symtree_forest_failures_total",
			Help: "Failed forest builds by reason.",
		}, []string{"reason"}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "symtree_forest_nodes",
			Help: "Number of catalogs in the last forest built.",
		}),
	}
}

// observeBuild records one forest build that started at start.
func (m *metrics) observeBuild(start time.Time, f *forest.Forest[catalog.Catalog], err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.builds.WithLabelValues("error").Observe(time.Since(start).Seconds())
		m.failures.WithLabelValues(failureReason(err)).Inc()
		return
	}
	m.builds.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	m.nodes.Set(float64(f.Len()))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, forest.ErrNotFound):
		return "not_found"
	case errors.Is(err, forest.ErrCycleDetected):
		return "cycle"
	case errors.Is(err, forest.ErrDuplicateName):
		return "duplicate"
	}
	return "source"
}

// instrument counts requests served by h under the given route label.
func (m *metrics) instrument(route string, h http.HandlerFunc) http.Handler {
	if m == nil {
		return h
	}
	return promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(prometheus.Labels{"route": route}), h)
}
