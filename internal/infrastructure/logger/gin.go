package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrorCodeKey is the gin context key a handler sets to the error code of a
// failed request. The request log and the request span both report it.
const ErrorCodeKey = "error_code"

const requestLogMessage = "HTTP Request"

// GinOption configures GinMiddleware
type GinOption func(*ginConfig)

type ginConfig struct {
	quiet map[string]bool
}

// WithQuietPaths logs successful requests to these paths at debug level, so
// health probes do not flood the request log
func WithQuietPaths(paths ...string) GinOption {
	return func(c *ginConfig) {
		for _, p := range paths {
			c.quiet[p] = true
		}
	}
}

// GinMiddleware logs one line per request and attaches a request-scoped
// logger for L to find. Fields set by later middleware on the request
// context, such as the acting organization, appear in the line.
func GinMiddleware(logger *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	cfg := ginConfig{quiet: make(map[string]bool)}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		reqLogger := logger.With(
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		fields := append(ContextFields(c.Request.Context()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		)
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if code := c.GetString(ErrorCodeKey); code != "" {
			fields = append(fields, zap.String("error_code", code))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		if ce := reqLogger.Check(requestLevel(status, cfg.quiet[path]), requestLogMessage); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestLevel(status int, quiet bool) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case quiet:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a handler panic into a logged 500 in the API error envelope
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				logger.Error("Panic recovered", append(ContextFields(ctx),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)...)
				c.Set(ErrorCodeKey, "INTERNAL_ERROR")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":       "INTERNAL_ERROR",
						"message":    "An internal error occurred",
						"request_id": GetRequestID(ctx),
					},
				})
			}
		}()
		c.Next()
	}
}
