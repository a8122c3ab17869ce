package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/packledger/pkg/logctx"
)

// HeaderOperatorID names the staff member acting on the request. Services
// fall back to it for audit fields the body leaves empty.
const HeaderOperatorID = "X-Operator-ID"

// RequestLoggerMiddleware attaches a request-scoped logger enriched with
// trace_id and operator_id (if present) to gin.Context and request context.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetString(string(logctx.TraceIDKey))
		operatorID := c.GetHeader(HeaderOperatorID)

		fields := []interface{}{"trace_id", traceID}
		ctx := c.Request.Context()
		if operatorID != "" {
			fields = append(fields, "operator_id", operatorID)
			ctx = context.WithValue(ctx, logctx.OperatorIDKey, operatorID)
		}

		reqLogger := base.With(fields...)
		c.Set(string(logctx.LoggerKey), reqLogger)
		ctx = context.WithValue(ctx, logctx.LoggerKey, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		// mirror trace id to response header when available
		if traceID != "" {
			c.Writer.Header().Set(HeaderRequestID, traceID)
		}

		c.Next()
	}
}
