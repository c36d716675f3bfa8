package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminTokenRequired guards the admin routes with a static bearer token.
// With no token configured the admin surface is disabled.
func AdminTokenRequired(token string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(token))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		parts := strings.Fields(strings.TrimSpace(c.GetHeader("Authorization")))
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), expected) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
