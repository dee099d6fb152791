package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
)

// AccessLog logs one line per HTTP request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		glog.Infof("%s %s %d %s %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}
