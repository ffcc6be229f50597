package middleware

import (
	"net/http"
	"strings"

	"doemais/services/auth"
	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// JWTAuthMiddleware resolves the bearer token to a live user and stores
// "userID", "user" and "token" in the context. With optional set, requests
// without a valid token pass through anonymously.
func JWTAuthMiddleware(authSvc auth.AuthService, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			if optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		user, err := authSvc.CurrentUser(c.Request.Context(), token)
		if err != nil {
			utils.GetLogger().Error("Auth lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user == nil {
			if optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Set("token", token)
		c.Next()
	}
}
