package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sanctumos/code-buddy/common/id"
	"github.com/sanctumos/code-buddy/common/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns a snowflake ID to each request, echoes it in the
// response header, and stamps it into the context log fields.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = id.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)

		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
			RequestID: logger.Ptr(requestID),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
