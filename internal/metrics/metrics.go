package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_sent_total",
			Help: "Notifications delivered and recorded",
		},
		[]string{"content_kind"},
	)

	NotificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_failed_total",
			Help: "Notification deliveries that failed and stay retryable",
		},
		[]string{"content_kind"},
	)

	NotificationsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_skipped_total",
			Help: "Recipients skipped because they were already notified",
		},
		[]string{"content_kind"},
	)
)

var registerOnce sync.Once

// Register registers the collectors once per process
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDurationHistogram,
			NotificationsSent,
			NotificationsFailed,
			NotificationsSkipped,
		)
	})
}

// HTTPMetrics records request metrics for one service
type HTTPMetrics struct {
	ServiceName string
}

func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	Register()
	return &HTTPMetrics{ServiceName: serviceName}
}

func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestCounter.WithLabelValues(m.ServiceName, c.Request.Method, path, status).Inc()
		RequestDurationHistogram.WithLabelValues(m.ServiceName, c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
