// Package metrics provides Prometheus metrics for the member registry API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/museum-members/member-registry-api/internal/domain/ranking"
)

const namespace = "member_registry"

// Metrics owns its registry so that several instances (tests) never collide.
type Metrics struct {
	reg *prometheus.Registry

	// RequestsTotal counts HTTP requests by method, route pattern and status code.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration measures HTTP request duration.
	RequestDuration *prometheus.HistogramVec
	// SearchResults counts returned search results by tier.
	SearchResults *prometheus.CounterVec
	// SearchTotalElements observes the pre-pagination match count of each search.
	SearchTotalElements prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SearchResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_results_total",
				Help:      "Total number of ranked search results returned, by tier",
			},
			[]string{"tier"},
		),
		SearchTotalElements: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_total_elements",
				Help:      "Distribution of match counts before pagination",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
			},
		),
	}
}

// RecordRequest records a finished HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordSearch records the tiers on a returned page and its total.
func (m *Metrics) RecordSearch(p ranking.Page) {
	if m == nil {
		return
	}
	for _, r := range p.Content {
		m.SearchResults.WithLabelValues(r.Tier.String()).Inc()
	}
	m.SearchTotalElements.Observe(float64(p.TotalElements))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
