package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoclass_requests_total",
		Help: "Total API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoclass_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	IndexBuildsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoclass_index_builds_total",
		Help: "Total cluster index builds",
	})
	IndexBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoclass_index_build_duration_ms",
		Help:    "Index build duration in milliseconds",
		Buckets: []float64{100, 500, 1000, 5000, 15000, 60000, 300000},
	})
	EvaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoclass_evaluations_total",
		Help: "Total evaluation runs",
	})
	ConvergenceWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoclass_convergence_warnings_total",
		Help: "Total k-means convergence warnings recorded on built indexes",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(IndexBuildsTotal)
	prometheus.MustRegister(IndexBuildDurationMs)
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(ConvergenceWarningsTotal)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
