package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storeadmin/pkg/utils"
)

// Timeout deadlines the request context. Marketplace calls inherit the
// deadline, so a stuck upstream cannot hold a handler open forever.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Next()
		}()

		select {
		case <-done:
		case <-ctx.Done():
			utils.ErrorResponse(c, http.StatusRequestTimeout, utils.CodeInternalError, "request timeout")
			c.Abort()
		}
	}
}
