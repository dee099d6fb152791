package security

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chathub/tools/errs"
	sec "chathub/tools/security"
)

// CtxUserIDKey is where downstream handlers read the verified identity.
const CtxUserIDKey = "authUserID"

// Middleware verifies the handshake token and stores the subject user id
// in the gin context. Tokens arrive either as ?token= (the only channel a
// browser WebSocket client has) or as Authorization: Bearer.
func Middleware(opts sec.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sec.FromRequest(c.Query("token"), c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		userID, err := sec.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}
