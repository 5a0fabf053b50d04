package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	QuizzesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_quizzes_completed_total",
			Help: "Finished quiz sessions",
		},
		[]string{"source", "difficulty"},
	)

	BadgesUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_badges_unlocked_total",
			Help: "Badges unlocked by players",
		},
		[]string{"badge"},
	)

	TriviaAPIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_api_requests_total",
			Help: "Outbound requests to the trivia question API",
		},
		[]string{"status"},
	)

	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_csv_import_rows_total",
			Help: "Question bank import rows by outcome",
		},
		[]string{"result"},
	)

	LiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trivia_live_connections",
			Help: "Open live websocket connections on this instance",
		},
	)

	LiveMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_live_messages_total",
			Help: "Live events delivered to clients",
		},
		[]string{"type"},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			QuizzesCompleted,
			BadgesUnlocked,
			TriviaAPIRequests,
			ImportRows,
			LiveConnections,
			LiveMessages,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
