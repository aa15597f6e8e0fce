// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtualboard_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "virtualboard_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Uploads counts blob uploads by purpose (material, recording, canvas, avatar) and result.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtualboard_uploads_total",
		Help: "Blob uploads by purpose and result.",
	}, []string{"purpose", "result"})

	// OrphanedBlobs counts stored blobs left without a referencing record.
	OrphanedBlobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtualboard_orphaned_blobs_total",
		Help: "Stored blobs left unreferenced after a partial failure.",
	}, []string{"purpose"})

	// CleanupJobs counts blob cleanup outcomes: deleted, retried, parked, requeued, dropped.
	CleanupJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtualboard_cleanup_jobs_total",
		Help: "Blob cleanup job outcomes.",
	}, []string{"outcome"})
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Instrument records request counts and latency per matched route.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
