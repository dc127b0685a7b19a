package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trenchbot_orders_placed_total",
			Help: "Total number of orders accepted by the engine.",
		},
		[]string{"side", "kind"},
	)
	OrdersFilled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trenchbot_orders_filled_total",
			Help: "Total number of orders filled.",
		},
		[]string{"side"},
	)
	OrdersCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trenchbot_orders_cancelled_total",
			Help: "Total number of orders cancelled.",
		},
	)
	SweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trenchbot_sweep_runs_total",
			Help: "Total number of limit-order sweep passes.",
		},
	)
	SweepFills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trenchbot_sweep_fills_total",
			Help: "Total number of limit orders filled by sweeps.",
		},
	)
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trenchbot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trenchbot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		OrdersPlaced,
		OrdersFilled,
		OrdersCancelled,
		SweepRuns,
		SweepFills,
		RequestCount,
		RequestDuration,
	)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
