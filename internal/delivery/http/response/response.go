package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OKResponse is the body of every successful response
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every failed response
type ErrorResponse struct {
	Error string `json:"error"`
}

// OK sends 200 {"ok":true}
func OK(c *gin.Context) {
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Error sends {"error": message} with the given status
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Error: message})
}

// RequestID returns the id set by the RequestID middleware
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "RequestID"
