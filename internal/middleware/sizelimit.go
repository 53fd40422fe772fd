package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/karte-api/pkg/httputil"
)

// DefaultMaxBodySize bounds note payloads.
const DefaultMaxBodySize int64 = 1 << 20

// SizeLimit rejects bodies over maxBytes. Declared lengths are checked up
// front; chunked bodies are cut off by http.MaxBytesReader while binding.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Success: false,
				Error: &httputil.Error{
					Code:    http.StatusRequestEntityTooLarge,
					Message: "request body too large",
				},
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
