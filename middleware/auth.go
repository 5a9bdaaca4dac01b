package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/config"
)

const PlayerIDKey = "player_id"

// SessionKey is the cache key marking token as a live session.
func SessionKey(token string) string {
	return "session:" + token
}

// BearerToken extracts the token from the Authorization header, falling
// back to the token query parameter for EventSource clients.
func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Auth validates the Bearer JWT token and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "unauthorized"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired", "code": "unauthorized"})
			return
		}

		ctx.Set(PlayerIDKey, claims.PlayerID)
		ctx.Next()
	}
}

// SelfOnly rejects requests whose :id path parameter is not the
// authenticated player.
func SelfOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid player id", "code": "validation"})
			return
		}
		if id != GetPlayerID(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not your player", "code": "forbidden"})
			return
		}
		c.Next()
	}
}

// GetPlayerID retrieves the authenticated player ID from the Gin context.
func GetPlayerID(c *gin.Context) int64 {
	if v, exists := c.Get(PlayerIDKey); exists {
		return v.(int64)
	}
	return 0
}
