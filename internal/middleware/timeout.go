package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/karte-api/pkg/errors"
	"github.com/jwalitptl/karte-api/pkg/httputil"
)

// Timeout bounds the request context. Store calls observe the deadline;
// if it passes before anything was written the client gets a 504.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			httputil.RespondWithError(c, apperrors.Timeout(ctx.Err()))
			c.Abort()
		}
	}
}
