// internal/pkg/response/response.go
package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Stable reason codes surfaced to clients so they can drive follow-up prompts
// without parsing error text.
const (
	ReasonAuthRequired     = "auth_required"
	ReasonRateLimited      = "rate_limited"
	ReasonConfirmChange    = "confirm_change"
	ReasonQuantityRequired = "quantity_required"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error) {
	// Abort FIRST before writing response
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	c.JSON(code, resp)
}

// Conflict sends a 409 carrying a stable reason code. Used for the scan
// confirmation protocol: the client re-invokes with the missing input.
func Conflict(c *gin.Context, reason, message string) {
	c.Abort()
	c.JSON(http.StatusConflict, Response{
		Success: false,
		Message: message,
		Reason:  reason,
	})
}

// RateLimited sends a 429 with a Retry-After header derived from the window reset.
func RateLimited(c *gin.Context, resetAt time.Time) {
	c.Abort()
	retryAfter := time.Until(resetAt)
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
	c.JSON(http.StatusTooManyRequests, Response{
		Success: false,
		Message: "too many requests",
		Reason:  ReasonRateLimited,
	})
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	c.Abort()
	c.JSON(http.StatusUnauthorized, Response{
		Success: false,
		Message: message,
		Reason:  ReasonAuthRequired,
	})
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
