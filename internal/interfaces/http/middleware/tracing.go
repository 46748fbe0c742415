package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns the otelgin middleware followed by a handler that tags the
// request span with request, company and objection ids. Error responses mark
// the span as failed.
func Tracing(cfg TracingConfig) gin.HandlersChain {
	if !cfg.Enabled {
		return gin.HandlersChain{func(c *gin.Context) { c.Next() }}
	}
	return gin.HandlersChain{
		otelgin.Middleware(cfg.ServiceName),
		spanAttributes(),
	}
}

func spanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if cn := c.Param("companyNumber"); cn != "" {
			span.SetAttributes(attribute.String("company_number", cn))
		}

		c.Next()

		if o, ok := GetObjection(c); ok {
			span.SetAttributes(attribute.String("objection_id", o.ID.String()))
		}
		if identity, ok := GetIdentity(c); ok {
			span.SetAttributes(attribute.String("user_id", identity.UserID))
		}
		if status := c.Writer.Status(); status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}
