package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	forumRepliesTotal   prometheus.Counter
	submissionsTotal    *prometheus.CounterVec
	gradingsTotal       prometheus.Counter
	notificationsTotal  *prometheus.CounterVec
	sseClientsActive    prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors of the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		forumRepliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forum_replies_total",
			Help: "Forum replies created.",
		})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Assignment answers saved, split into drafts and final submissions.",
		}, []string{"kind"})

		gradingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradings_total",
			Help: "Submissions graded by teachers.",
		})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications published, by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sse_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpDurationSeconds,
			httpErrorsTotal,
			forumRepliesTotal,
			submissionsTotal,
			gradingsTotal,
			notificationsTotal,
			sseClientsActive,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpDurationSeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

func ForumReplies() prometheus.Counter {
	RegisterMetrics()
	return forumRepliesTotal
}

// Submissions is labelled with kind "draft" or "submit".
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

func Gradings() prometheus.Counter {
	RegisterMetrics()
	return gradingsTotal
}

func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

func SSEClients() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
