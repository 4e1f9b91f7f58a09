package middleware

import (
	"net/http"

	"go-contact-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
)

// BodyLimit rejects bodies larger than limit bytes. Declared sizes are
// rejected up front; chunked bodies fail when the handler reads past the limit.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.Error(c, http.StatusRequestEntityTooLarge, "Payload too large")
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
