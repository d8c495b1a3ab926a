package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddleware returns the gate as gin middleware. On success the gin
// context continues with the request carrying the identity headers.
func (g *Gate) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		forwarded, result := g.Resolve(c.Request)
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
			return
		}
		c.Request = forwarded
		if result.Identity != nil {
			c.Set(GinIdentityKey, result.Identity)
		}
		c.Next()
	}
}

// GinIdentityKey is the gin context key holding the *Identity.
const GinIdentityKey = "auth.identity"
