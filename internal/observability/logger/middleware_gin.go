package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/timesheet/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const RequestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging. QuietRoutes log at debug unless
// they fail; nil means /health and /metrics.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
	QuietRoutes     []string
}

// Handler keys copied onto the request log line when set.
var contextFields = []string{"week_start", "template_id", "invoice_format"}

// GinMiddleware assigns a request id, then writes one "http_request" line
// per request once the handler chain returns.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := map[string]bool{"/health": true, "/metrics": true}
	if cfg.QuietRoutes != nil {
		quiet = make(map[string]bool, len(cfg.QuietRoutes))
		for _, route := range cfg.QuietRoutes {
			quiet[route] = true
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		for _, key := range contextFields {
			if value := strings.TrimSpace(c.GetString(key)); value != "" {
				fields = append(fields, zap.String(key, value))
			}
		}
		if last := c.Errors.Last(); last != nil && cfg.ErrorClassifier != nil {
			errType, errCode := cfg.ErrorClassifier(last.Err)
			fields = append(fields, zap.String("error_type", errType), zap.String("error_code", errCode))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case quiet[route]:
			level = zapcore.DebugLevel
		}
		if ce := FromContext(c.Request.Context()).Check(level, "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}
