package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	bizerrors "github.com/kart-io/bookrag/pkg/errors"
	mwopts "github.com/kart-io/bookrag/pkg/options/middleware"
	"github.com/kart-io/bookrag/pkg/utils/response"
)

// Timeout returns a middleware that bounds each request with the default deadline.
func Timeout() gin.HandlerFunc {
	return TimeoutWithOptions(*mwopts.NewTimeoutOptions())
}

// TimeoutWithOptions 为请求上下文设置截止时间，上游调用随之取消。
// 处理函数在同一 goroutine 中运行；截止时间到达且尚未写出响应时返回 ErrRequestTimeout。
// Timeout 为 0 时不做限制。
func TimeoutWithOptions(opts mwopts.TimeoutOptions) gin.HandlerFunc {
	skip := newPathMatcher(opts.SkipPaths)

	return func(c *gin.Context) {
		if opts.Timeout <= 0 || skip(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), opts.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			response.Fail(c, bizerrors.ErrRequestTimeout)
		}
	}
}
