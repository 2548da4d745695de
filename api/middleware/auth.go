package middleware

import (
	"net/http"
	"petii/services"
	"strings"

	"github.com/gin-gonic/gin"
)

// bearerToken reads "Authorization: Bearer <token>" or a raw token in the header.
func bearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return authHeader
}

// AuthMiddleware требует валидный токен и кладет user_id в контекст.
func AuthMiddleware(tokens *services.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token, authorization denied"})
			return
		}
		userID, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is not valid"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// OptionalAuthMiddleware - middleware для опциональной аутентификации.
// An invalid token is ignored, not rejected.
func OptionalAuthMiddleware(tokens *services.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if userID, err := tokens.Verify(token); err == nil {
				c.Set("user_id", userID)
			}
		}
		c.Next()
	}
}

// WSAuthMiddleware is OptionalAuthMiddleware that also reads the token query parameter.
// Mounted on the socket endpoint only.
func WSAuthMiddleware(tokens *services.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if token != "" {
			if userID, err := tokens.Verify(token); err == nil {
				c.Set("user_id", userID)
			}
		}
		c.Next()
	}
}
