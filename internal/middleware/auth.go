package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"groupchat-service/internal/auth"
)

// AuthMiddleware validates the Authorization header and stores the verified
// identity on the request context.
func AuthMiddleware(authenticator *auth.TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := authenticator.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", identity.ID)
		c.Set("userName", identity.Name)
		c.Next()
	}
}
