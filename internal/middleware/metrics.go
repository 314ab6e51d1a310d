package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

type requestRecorder interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// RequestMetrics records method, route template, status and latency of every request except
// those whose path is listed in skipPaths. Unknown routes share one label.
func RequestMetrics(recorder requestRecorder, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if recorder == nil {
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}
		recorder.ObserveHTTPRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
