package rate

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware limits each client IP to max requests per window. A
// non-positive max disables limiting.
func Middleware(limiter Limiter, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max <= 0 {
			c.Next()
			return
		}

		ok, retry := limiter.Allow("ip:"+c.ClientIP(), max, window)
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		if !ok {
			seconds := int(math.Ceil(retry.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message":    "Too many requests, please try again later.",
				"retryAfter": seconds,
			})
			return
		}
		c.Next()
	}
}
