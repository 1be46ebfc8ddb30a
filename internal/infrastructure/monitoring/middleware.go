package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection. Paths are
// recorded by route template so app names don't explode label cardinality.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures a scan.
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer starts a scan timer.
func NewTimer(metrics *Metrics) *Timer {
	return &Timer{start: time.Now(), metrics: metrics}
}

// Stop records the elapsed time and the number of candidates found.
func (t *Timer) Stop(candidates int) time.Duration {
	elapsed := time.Since(t.start)
	t.metrics.RecordScan(elapsed, candidates)
	return elapsed
}
