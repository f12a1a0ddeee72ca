package monitoring

import (
	"strconv"
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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	CourseGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_generations_total",
			Help: "Course generation requests by outcome",
		},
		[]string{"outcome"}, // generated / cached / invalid / failed
	)

	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "course_generation_duration_seconds",
			Help:    "End-to-end duration of a full course generation",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	ModuleFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_module_fallbacks_total",
			Help: "Modules that required fallback structured content",
		},
	)

	QuizFallbackQuestions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_quiz_fallback_questions_total",
			Help: "Quiz questions synthesized deterministically after generation failures",
		},
	)

	VideoResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_video_resolutions_total",
			Help: "Per-module video resolution outcomes",
		},
		[]string{"status"}, // ok / no_safe_videos / fetch_error / cached
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(CourseGenerations)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(ModuleFallbacks)
	prometheus.MustRegister(QuizFallbackQuestions)
	prometheus.MustRegister(VideoResolutions)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
