package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/bookrag/pkg/id"
	applogger "github.com/kart-io/bookrag/pkg/infra/logger"
	"github.com/kart-io/bookrag/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/bookrag/pkg/options/middleware"
)

// RequestID returns a middleware that adds a unique request ID to each request.
func RequestID() gin.HandlerFunc {
	return RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil)
}

// RequestIDWithOptions 返回请求 ID 中间件。
// 请求头中已有 ID 时沿用，否则由 gen 生成；gen 为 nil 时按 opts.GeneratorType 创建。
// ID 会写入响应头、请求上下文（通过 requestutil.GetRequestID 读取）以及上下文日志字段。
func RequestIDWithOptions(opts mwopts.RequestIDOptions, gen id.Generator) gin.HandlerFunc {
	if opts.Header == "" {
		opts.Header = requestutil.HeaderXRequestID
	}
	if gen == nil {
		var err error
		gen, err = id.NewGenerator(id.Type(opts.GeneratorType))
		if err != nil {
			gen = id.NewULIDGenerator()
		}
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(opts.Header)
		if requestID == "" {
			requestID = gen.Generate()
		}

		c.Header(opts.Header, requestID)
		ctx := requestutil.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(applogger.WithRequestID(ctx, requestID))

		c.Next()
	}
}
