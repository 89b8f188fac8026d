package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
)

type traceKey struct{}

// TraceIDKey is the gin context key holding the request's trace id.
const TraceIDKey = "trace_id"

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

func GetTraceIdOfRequest(c *gin.Context) string {
	if id := c.GetString(TraceIDKey); id != "" {
		return id
	}
	return TraceID(c.Request.Context())
}
