package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"storeadmin/pkg/limiter"
	"storeadmin/pkg/log"
	"storeadmin/pkg/utils"
)

// IPRateLimit token-bucket rate limiting keyed by client IP
func IPRateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		lim, exists := limiters[key]
		if !exists {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[key] = lim
		}
		mu.Unlock()

		if !lim.Allow() {
			log.WithFields(map[string]interface{}{
				"ip":   key,
				"path": c.Request.URL.Path,
			}).Warn("Rate limit exceeded")

			utils.ErrorResponse(c, http.StatusTooManyRequests, utils.CodeTooManyRequests, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}

// TransitionRateLimit rate limits marketplace transition endpoints per
// order, so a double-clicked button cannot fire duplicate transitions.
// Backed by the shared redis sliding window, it holds across replicas.
func TransitionRateLimit(lim limiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("transition:%s", c.Param("order_no"))

		allowed, err := lim.Allow(c.Request.Context(), key)
		if err != nil {
			// limiter backend down, let the request through
			log.WithError(err).Warn("Rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, utils.CodeTooManyRequests, "transition already in flight, slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
