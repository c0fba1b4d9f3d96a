package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	apperrors "citygate/internal/errors"
	"citygate/internal/logger"
)

const throttleKeyPrefix = "lt:"

// LoginThrottle limits the login endpoint to one request per window per
// client IP using a fixed-window Redis counter: INCR plus EXPIRE on the
// first hit of each window. If Redis is unavailable the request is let
// through; the throttle is a brake, not an availability dependency.
func LoginThrottle(rdb redis.UniversalClient, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := throttleKeyPrefix + c.ClientIP()

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logger.Named("throttle").Warnw("redis unavailable, skipping login throttle", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := rdb.Expire(c.Request.Context(), key, window).Err(); err != nil {
				logger.Named("throttle").Warnw("failed to set throttle window", "error", err)
			}
		}

		if count > 1 {
			sentinel := apperrors.ErrTooManyRequests
			c.AbortWithStatusJSON(sentinel.StatusCode, gin.H{
				"error": gin.H{
					"code":    sentinel.Code,
					"message": sentinel.Message,
				},
			})
			return
		}

		c.Next()
	}
}
