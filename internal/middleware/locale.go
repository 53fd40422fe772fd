package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/karte-api/internal/locale"
)

// Locale resolves Accept-Language once per request and stores the result
// on the request context for label rendering.
func Locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := locale.Match(c.GetHeader("Accept-Language"))
		c.Request = c.Request.WithContext(locale.WithTag(c.Request.Context(), tag))
		c.Header("Content-Language", tag.String())
		c.Next()
	}
}
