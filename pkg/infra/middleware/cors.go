package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/bookrag/pkg/options/middleware"
)

// CORS returns a middleware that adds CORS headers.
func CORS() gin.HandlerFunc {
	return CORSWithOptions(*mwopts.NewCORSOptions())
}

// CORSWithOptions returns a CORS middleware. Only listed origins are echoed back,
// preflight requests from them end with 204.
// 配置错误会在启动时 panic。
func CORSWithOptions(opts mwopts.CORSOptions) gin.HandlerFunc {
	if err := validateCORSOptions(opts); err != nil {
		panic(err)
	}

	if len(opts.AllowMethods) == 0 {
		opts.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions}
	}
	if len(opts.AllowHeaders) == 0 {
		opts.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 86400
	}

	allowMethods := strings.Join(opts.AllowMethods, ", ")
	allowHeaders := strings.Join(opts.AllowHeaders, ", ")
	exposeHeaders := strings.Join(opts.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigin := ""
		for _, o := range opts.AllowOrigins {
			if o == "*" || o == origin {
				allowedOrigin = o
				break
			}
		}
		if origin == "" || allowedOrigin == "" {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Vary", "Origin")
		if opts.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if exposeHeaders != "" {
			c.Header("Access-Control-Expose-Headers", exposeHeaders)
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func validateCORSOptions(opts mwopts.CORSOptions) error {
	if len(opts.AllowOrigins) == 0 {
		return fmt.Errorf("CORS: AllowOrigins must be explicitly configured, empty list not allowed")
	}
	for _, origin := range opts.AllowOrigins {
		if origin == "*" {
			if opts.AllowCredentials {
				return fmt.Errorf("CORS: cannot use wildcard origin '*' with AllowCredentials=true")
			}
			continue
		}
		if err := validateOriginFormat(origin); err != nil {
			return fmt.Errorf("CORS: invalid origin format '%s': %w", origin, err)
		}
	}
	return nil
}

// validateOriginFormat checks an origin has the form scheme://host[:port].
func validateOriginFormat(origin string) error {
	scheme, rest, ok := strings.Cut(origin, "://")
	if !ok || scheme == "" {
		return fmt.Errorf("origin must include scheme (http:// or https://)")
	}
	if rest == "" {
		return fmt.Errorf("origin must include host")
	}
	if strings.ContainsAny(rest, "/?#") {
		return fmt.Errorf("origin should not include path, query, or fragment")
	}
	return nil
}
