package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/internal/types"
)

// RequestIDMiddleware tags every request with an id, honoring one supplied
// by the caller so ids correlate across services.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUIDPrefixRequest)
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	if userID := c.GetHeader("X-User-ID"); userID != "" {
		ctx = types.SetUserID(ctx, userID)
	}
	c.Request = c.Request.WithContext(ctx)

	c.Writer.Header().Set("X-Request-ID", requestID)
	c.Next()
}
