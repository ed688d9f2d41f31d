package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/bookrag/pkg/options/middleware"
)

// Logger returns a middleware that logs HTTP requests with default options.
func Logger() gin.HandlerFunc {
	return LoggerWithOptions(*mwopts.NewLoggerOptions())
}

// LoggerWithOptions 返回访问日志中间件，每个请求在完成后输出一条结构化日志。
// 5xx 以 Error 级别输出，其余为 Info。
func LoggerWithOptions(opts mwopts.LoggerOptions) gin.HandlerFunc {
	skip := newPathMatcher(opts.SkipPaths)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip(path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", requestutil.GetClientIP(c.Request),
			"request_id", requestutil.GetRequestID(c.Request.Context()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		if status >= 500 {
			logger.Errorw("HTTP Request", fields...)
			return
		}
		logger.Infow("HTTP Request", fields...)
	}
}
