// Package middleware holds the gin middleware shared across routes.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quickmate/server/internal/v1/logging"
)

const correlationHeader = "X-Correlation-ID"

// Correlation attaches a request correlation id to the context and the
// response, minting one when the client did not send its own.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(correlationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), logging.CorrelationIDKey, cid)
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlationHeader, cid)
		c.Next()
	}
}
