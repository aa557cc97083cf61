package metrics

import (
	"time"

	"github.com/warlaundry/washerman/internal/domain"
)

type MetricsProvider interface {
	RemoteCall(endpoint string, err error, took time.Duration)
	StatusTransition(target domain.OrderStatus, err error)
	DashboardRefreshed(stats *domain.DashboardStats, err error)
	HTTPRequest(route string, code int, took time.Duration)
	SessionsActive(n int)
	UpdateWorkerPoolMetrics(active, queueSize int)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type PrometheusProvider struct{}

func NewPrometheusProvider() *PrometheusProvider {
	return &PrometheusProvider{}
}

func (p *PrometheusProvider) RemoteCall(endpoint string, err error, took time.Duration) {
	RemoteRequestsTotal.WithLabelValues(endpoint, result(err)).Inc()
	RemoteRequestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (p *PrometheusProvider) StatusTransition(target domain.OrderStatus, err error) {
	StatusTransitionsTotal.WithLabelValues(target.Key(), result(err)).Inc()
}

func (p *PrometheusProvider) DashboardRefreshed(stats *domain.DashboardStats, err error) {
	DashboardRefreshTotal.WithLabelValues(result(err)).Inc()
	if stats == nil {
		return
	}
	OrdersByStatus.WithLabelValues("total").Set(float64(stats.TotalOrders))
	OrdersByStatus.WithLabelValues("pending").Set(float64(stats.PendingOrders))
	OrdersByStatus.WithLabelValues("inprogress").Set(float64(stats.InProgressOrders))
	OrdersByStatus.WithLabelValues("complete").Set(float64(stats.CompleteOrders))
}

func (p *PrometheusProvider) HTTPRequest(route string, code int, took time.Duration) {
	HTTPDuration.WithLabelValues(route, statusClass(code)).Observe(took.Seconds())
}

func (p *PrometheusProvider) SessionsActive(n int) {
	SessionsActive.Set(float64(n))
}

func (p *PrometheusProvider) UpdateWorkerPoolMetrics(active, queueSize int) {
	WorkerPoolActive.Set(float64(active))
	WorkerPoolQueueSize.Set(float64(queueSize))
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

type NoOpProvider struct{}

func NewNoOpProvider() *NoOpProvider {
	return &NoOpProvider{}
}

func (p *NoOpProvider) RemoteCall(endpoint string, err error, took time.Duration)  {}
func (p *NoOpProvider) StatusTransition(target domain.OrderStatus, err error)      {}
func (p *NoOpProvider) DashboardRefreshed(stats *domain.DashboardStats, err error) {}
func (p *NoOpProvider) HTTPRequest(route string, code int, took time.Duration)     {}
func (p *NoOpProvider) SessionsActive(n int)                                       {}
func (p *NoOpProvider) UpdateWorkerPoolMetrics(active, queueSize int)              {}
