package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemoteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "washerman_remote_requests_total",
		Help: "Requests sent to the remote order service",
	}, []string{"endpoint", "result"})

	RemoteRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "washerman_remote_request_duration_seconds",
		Help:    "Duration of remote order service calls in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "washerman_status_transitions_total",
		Help: "Status transitions requested from the panel",
	}, []string{"target", "result"})

	DashboardRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "washerman_dashboard_refresh_total",
		Help: "Dashboard refreshes by result",
	}, []string{"result"})

	OrdersByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "washerman_orders_by_status",
		Help: "Order counts reported by the last dashboard refresh",
	}, []string{"status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "washerman_http_duration_seconds",
		Help:    "Duration of panel HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "washerman_sessions_active",
		Help: "Sessions held by the session store",
	})

	WorkerPoolActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "washerman_worker_pool_active",
		Help: "Number of busy workers in the pool",
	})

	WorkerPoolQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "washerman_worker_pool_queue_size",
		Help: "Current size of the worker pool queue",
	})
)
