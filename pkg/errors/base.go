package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// ============================================================================
// Success
// ============================================================================

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	GRPCCode:  codes.OK,
	MessageEN: "Success",
	MessageZH: "成功",
})

// ============================================================================
// Request Errors (Category: 01)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Bad request",
		MessageZH: "请求错误",
	})

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid parameter",
		MessageZH: "参数无效",
	})
)

// ============================================================================
// Resource Errors (Category: 04)
// ============================================================================

// ErrRouteNotFound indicates the route is not found.
var ErrRouteNotFound = Register(&Errno{
	Code:      MakeCode(ServiceCommon, CategoryResource, 4),
	HTTP:      http.StatusNotFound,
	GRPCCode:  codes.NotFound,
	MessageEN: "Route not found",
	MessageZH: "路由不存在",
})

// ============================================================================
// Internal Errors (Category: 07)
// ============================================================================

var (
	// ErrInternal indicates an internal server error.
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})

	// ErrPanic indicates a service panic.
	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Service panic",
		MessageZH: "服务崩溃",
	})
)

// ============================================================================
// Network Errors (Category: 10)
// ============================================================================

// ErrServiceUnavailable indicates the service is unavailable.
var ErrServiceUnavailable = Register(&Errno{
	Code:      MakeCode(ServiceCommon, CategoryNetwork, 1),
	HTTP:      http.StatusServiceUnavailable,
	GRPCCode:  codes.Unavailable,
	MessageEN: "Service unavailable",
	MessageZH: "服务不可用",
})

// ============================================================================
// Timeout Errors (Category: 11)
// ============================================================================

// ErrRequestTimeout indicates request timeout.
var ErrRequestTimeout = Register(&Errno{
	Code:      MakeCode(ServiceCommon, CategoryTimeout, 1),
	HTTP:      http.StatusRequestTimeout,
	GRPCCode:  codes.DeadlineExceeded,
	MessageEN: "Request timeout",
	MessageZH: "请求超时",
})

// ============================================================================
// Configuration Errors (Category: 12)
// ============================================================================

// ErrConfigInvalid indicates invalid configuration.
var ErrConfigInvalid = Register(&Errno{
	Code:      MakeCode(ServiceCommon, CategoryConfig, 2),
	HTTP:      http.StatusInternalServerError,
	GRPCCode:  codes.Internal,
	MessageEN: "Invalid configuration",
	MessageZH: "配置无效",
})
