// Package response writes the error envelope for requests that fail outside the
// business handlers: panics, timeouts and unknown routes. Business endpoints
// write their own payloads.
package response

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/bookrag/pkg/errors"
	"github.com/kart-io/bookrag/pkg/infra/middleware/requestutil"
)

// Response is the error envelope.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`
}

// Err creates a response from an error. Errors that are not *errors.Errno map to ErrInternal.
func Err(err error) *Response {
	e := errors.FromError(err)
	if e == nil {
		e = errors.OK
	}
	return &Response{
		Code:    e.Code,
		Message: e.MessageEN,
	}
}

// Fail writes err as JSON with the HTTP status of its error code and aborts the chain.
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	if e == nil {
		e = errors.ErrInternal
	}
	resp := Err(e)
	resp.RequestID = requestutil.GetRequestID(c.Request.Context())
	c.AbortWithStatusJSON(e.HTTPStatus(), resp)
}
