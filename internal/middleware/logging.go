package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedrawer_requests_total",
			Help: "Total number of requests processed by filedrawer.",
		},
		[]string{"path", "status"},
	)
	ErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedrawer_requests_errors_total",
			Help: "Total number of error requests processed by filedrawer.",
		},
		[]string{"path", "status"},
	)
	FileBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedrawer_file_bytes_total",
			Help: "Bytes of file content uploaded and served.",
		},
		[]string{"direction"},
	)
)

func PrometheusInit() {
	prometheus.MustRegister(RequestCount)
	prometheus.MustRegister(ErrorCount)
	prometheus.MustRegister(FileBytes)
}

// Fail records err, sets the status and stops the chain. Nothing is written
// yet, ErrorHandler sends the status line with the error page.
func Fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.Status(status)
	c.Abort()
}

// ErrorHandler logs the last handler error and renders the error page,
// unless the handler already wrote a response.
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}
		logger.Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, err)
		if c.Writer.Written() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		message := err.Error()
		if status >= http.StatusInternalServerError {
			message = "Something went wrong, please try again later."
		}
		c.HTML(status, "error.html", gin.H{
			"Status":  status,
			"Title":   http.StatusText(status),
			"Message": message,
		})
	}
}

// LogHandler is middleware that logs response times
func LogHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next() // Process request

		// route pattern keeps the label set bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		latency := time.Since(start)
		if status >= 400 {
			logger.Errorf("from: %s | took: %dms | %d %s %s", clientIP, latency.Milliseconds(), status, method, c.Request.URL.Path)
			ErrorCount.WithLabelValues(path, http.StatusText(status)).Inc()
		} else {
			logger.Infof("from: %s | took: %dms | %d %s %s", clientIP, latency.Milliseconds(), status, method, c.Request.URL.Path)
		}
		RequestCount.WithLabelValues(path, http.StatusText(status)).Inc()
	}
}

// MetricsHandler wraps the prometheus handler with basic auth
func MetricsHandler(metricsPassword string) gin.HandlerFunc {
	promHandler := promhttp.Handler()

	return func(c *gin.Context) {
		_, pass, ok := c.Request.BasicAuth()

		if !ok || subtle.ConstantTimeCompare([]byte(pass), []byte(metricsPassword)) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="metrics"`)
			Fail(c, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}

		promHandler.ServeHTTP(c.Writer, c.Request)
	}
}
