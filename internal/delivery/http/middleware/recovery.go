package middleware

import (
	"net/http"

	"go-contact-backend/internal/delivery/http/response"
	"go-contact-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into the generic 500 body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Log.Errorw("Panic recovered",
			"panic", recovered,
			"path", c.Request.URL.Path,
			"request_id", response.RequestID(c),
		)
		response.Error(c, http.StatusInternalServerError, "Server error")
		c.Abort()
	})
}
