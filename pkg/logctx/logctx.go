package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey string

const (
	LoggerKey     ctxKey = "logger"
	TraceIDKey    ctxKey = "traceID"
	OperatorIDKey ctxKey = "operatorID"
)

// FromGin returns a request-scoped logger from gin.Context if present,
// otherwise returns the provided base logger.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(string(LoggerKey)); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns a logger from context if set, otherwise enriches base
// with trace_id/operator_id found in the context.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = zap.NewNop().Sugar()
	}
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value(LoggerKey).(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	var fields []interface{}
	if tid := TraceID(ctx); tid != "" {
		fields = append(fields, "trace_id", tid)
	}
	if oid := OperatorID(ctx); oid != "" {
		fields = append(fields, "operator_id", oid)
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(TraceIDKey).(string)
	return s
}

func OperatorID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(OperatorIDKey).(string)
	return s
}
