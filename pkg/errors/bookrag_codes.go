package errors

import (
	"context"
	stderrors "errors"

	"google.golang.org/grpc/codes"
)

// bookrag 服务错误码: 20 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 20 (bookrag)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrValidation = Register(New(MakeCode(ServiceBookRAG, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid request", "请求参数无效"))

	// 配置错误 (类别 12)
	ErrConfiguration     = Register(New(MakeCode(ServiceBookRAG, CategoryConfig, 1), 500, codes.FailedPrecondition, "Service is not configured", "服务配置缺失"))
	ErrDimensionMismatch = Register(New(MakeCode(ServiceBookRAG, CategoryConfig, 2), 500, codes.FailedPrecondition, "Collection vector dimension mismatch", "集合向量维度不匹配"))

	// 上游服务错误 (类别 10 / 11)
	ErrUpstream        = Register(New(MakeCode(ServiceBookRAG, CategoryNetwork, 1), 502, codes.Unavailable, "Upstream service failed", "上游服务调用失败"))
	ErrUpstreamTimeout = Register(New(MakeCode(ServiceBookRAG, CategoryTimeout, 1), 504, codes.DeadlineExceeded, "Upstream service timed out", "上游服务超时"))
)

// Kind 表示错误所属的分类。
type Kind int

const (
	// KindUnknown 无法识别的错误。
	KindUnknown Kind = iota
	// KindValidation 请求字段为空或格式错误。
	KindValidation
	// KindConfiguration 缺少凭据或地址。
	KindConfiguration
	// KindUpstream embedding、检索或生成调用失败或超时。
	KindUpstream
)

// String returns the taxonomy name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConfiguration:
		return "ConfigurationError"
	case KindUpstream:
		return "UpstreamServiceError"
	default:
		return "UnknownError"
	}
}

// KindOf 根据错误码类别返回错误分类。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	code := GetCode(err)
	if code < 0 {
		return KindUnknown
	}
	switch GetCategory(code) {
	case CategoryRequest:
		return KindValidation
	case CategoryConfig:
		return KindConfiguration
	case CategoryNetwork, CategoryTimeout, CategoryRateLimit:
		return KindUpstream
	default:
		return KindUnknown
	}
}

// Upstream 将上游调用错误包装为 ErrUpstream，超时包装为 ErrUpstreamTimeout。
// 已经是 Errno 的错误原样返回。
func Upstream(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrUpstreamTimeout.WithCause(err)
	}
	return ErrUpstream.WithCause(err)
}
