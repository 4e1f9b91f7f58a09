package middleware

import (
	"errors"
	"net/http"

	"go-contact-backend/internal/delivery/http/response"
	"go-contact-backend/pkg/apperror"
	"go-contact-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.Internal(err)
		}

		// SECURITY: the cause is logged here and never sent to the client.
		if appErr.Code >= http.StatusInternalServerError {
			logger.Log.Errorw("Request failed",
				"status", appErr.Code,
				"path", c.Request.URL.Path,
				"request_id", response.RequestID(c),
				"error", appErr.Err,
			)
		} else {
			logger.Log.Debugw("Request rejected",
				"status", appErr.Code,
				"path", c.Request.URL.Path,
				"request_id", response.RequestID(c),
				"reason", appErr.Error(),
			)
		}

		response.Error(c, appErr.Code, appErr.Message)
	}
}
