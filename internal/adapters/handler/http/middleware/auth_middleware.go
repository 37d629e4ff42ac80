package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
)

const (
	authorizationHeader = "Authorization"
	authorizationScheme = "Bearer"
	ContextUserIDKey    = "userID"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// AuthMiddleware puts the token's user id under ContextUserIDKey. The scheme
// is matched case-insensitively.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			unauthorized(c, "authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, authorizationScheme) || token == "" || strings.ContainsAny(token, " \t") {
			unauthorized(c, "invalid authorization header format")
			return
		}

		userID, err := tokens.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Debug("rejected bearer token", "path", c.FullPath(), "err", err)
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", authorizationScheme)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func GetUserID(c *gin.Context) (string, bool) {
	id, ok := c.Get(ContextUserIDKey)
	if !ok {
		return "", false
	}
	s, ok := id.(string)
	return s, ok && s != ""
}
