package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Origin rejects cross-origin upgrade requests unless the Origin header is
// on the allowlist. An empty allowlist admits everything, which is the
// right default for non-browser clients and local development.
func Origin(allowed []string) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allow[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if len(allow) == 0 || origin == "" {
			c.Next()
			return
		}
		if _, ok := allow[origin]; !ok {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
