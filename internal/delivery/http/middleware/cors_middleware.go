package middleware

import (
	"net/http"

	"go-contact-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware adds CORS headers for the configured frontend origin.
//
// Only GET and POST are allowed cross-origin. Requests without an Origin
// header (same-origin, curl, health probes) pass untouched. "*" allows any
// origin.
func CORSMiddleware(allowedOrigin string, logger *security.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		isAllowed := origin == "" || allowedOrigin == "*" || origin == allowedOrigin

		if isAllowed && origin != "" {
			if allowedOrigin == "*" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")
			c.Header("Access-Control-Max-Age", "86400") // 24 hours
		}
		// If not allowed, no CORS headers are sent - browser will block the request

		// Vary header to ensure caches differentiate by Origin
		c.Header("Vary", "Origin")

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			if isAllowed {
				c.AbortWithStatus(http.StatusNoContent)
			} else {
				logger.Log(c.Request.Context(), security.SecurityEvent{
					Event:        security.EventCORSRejected,
					SubjectType:  "origin",
					SubjectValue: origin,
					IP:           c.ClientIP(),
				})
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}

		c.Next()
	}
}
