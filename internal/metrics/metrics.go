// Package metrics holds the Prometheus collectors of the application
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Registrations    prometheus.Counter
	LoginFailures    prometheus.Counter
	PostsCreated     prometheus.Counter
	BorrowsRequested prometheus.Counter
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booklog_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booklog_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklog_registrations_total",
			Help: "Total number of users created by self-registration or by an admin",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklog_login_failures_total",
			Help: "Total number of rejected sign-in attempts",
		}),
		PostsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklog_posts_created_total",
			Help: "Total number of posts published",
		}),
		BorrowsRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklog_borrows_requested_total",
			Help: "Total number of borrow requests",
		}),
	}
}
