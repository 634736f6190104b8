package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// ByClientIP buckets requests per client address.
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByActor buckets authenticated requests per user and falls back to the
// client address when no actor is on the context.
func ByActor(c *gin.Context) string {
	if actor, ok := GetActorFromContext(c); ok {
		return "user:" + actor.UserID
	}
	return ByClientIP(c)
}

// RateLimit rejects requests once the bucket chosen by key is exhausted and
// reports the remaining quota in X-RateLimit-* headers.
func RateLimit(l *limiter.Limiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		bucket := key(c)
		logger := GetLoggerFromCtx(c.Request.Context())

		quota, err := l.Get(c.Request.Context(), bucket)
		if err != nil {
			logger.Error("Failed to get rate limit context", slog.String("bucket", bucket), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during rate limit check"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(quota.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(quota.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(quota.Reset, 10))

		if quota.Reached {
			logger.Warn("Rate limit exceeded", slog.String("bucket", bucket), slog.Int64("limit", quota.Limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}
