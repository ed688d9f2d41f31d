package middleware

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/pkg/errors"
	"github.com/kart-io/bookrag/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/bookrag/pkg/options/middleware"
	"github.com/kart-io/bookrag/pkg/utils/response"
)

// PanicHandler 定义 panic 处理器类型。
type PanicHandler func(c *gin.Context, err any, stack []byte)

// Recovery returns a middleware that recovers from panics with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(*mwopts.NewRecoveryOptions(), nil)
}

// RecoveryWithOptions 返回 Recovery 中间件。
// 完整堆栈总是写入日志；仅在非生产环境且开启 EnableStackTrace 时返回给客户端。
// onPanic 可选，用于告警等额外处理。
func RecoveryWithOptions(opts mwopts.RecoveryOptions, onPanic PanicHandler) gin.HandlerFunc {
	withStack := opts.EnableStackTrace
	if withStack && isProductionEnvironment() {
		logger.Warn("Stack trace is enabled but running in production environment, it will only be logged")
		withStack = false
	}

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()

			logger.Errorw("panic recovered",
				"panic", r,
				"stack_trace", string(stack),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"request_id", requestutil.GetRequestID(c.Request.Context()),
			)

			if onPanic != nil {
				onPanic(c, r, stack)
			}

			msg := fmt.Sprintf("panic: %v", r)
			if withStack {
				msg += "\n" + string(stack)
			}
			response.Fail(c, errors.ErrPanic.WithMessage(msg))
		}()
		c.Next()
	}
}

// isProductionEnvironment checks APP_ENV, then GO_ENV.
func isProductionEnvironment() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch strings.ToLower(env) {
	case "production", "prod":
		return true
	default:
		return false
	}
}
