package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/pkg/errcode"
)

// Response is the envelope of every HTTP reply. Code 0 is success; any other
// code is an errcode value and Retryable tells sync clients whether to back off and retry.
type Response struct {
	Code      int         `json:"code"`
	Msg       string      `json:"msg"`
	Retryable bool        `json:"retryable,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Success sends data with code 0
func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "success", Data: data})
}

// Error sends the business code carried by err. Errors without one are
// logged and reported as an internal error without their text.
func Error(ctx context.Context, c *app.RequestContext, err error) {
	var e *errcode.Error
	if !errors.As(err, &e) {
		log.CtxError(ctx, "unclassified error: path=%s, error=%v", c.Path(), err)
		e = errcode.ErrInternalServer
	}
	ErrorWithCode(ctx, c, e)
}

// ErrorWithCode sends e
func ErrorWithCode(ctx context.Context, c *app.RequestContext, e *errcode.Error) {
	c.JSON(http.StatusOK, Response{Code: e.Code, Msg: e.Msg, Retryable: e.Retryable()})
}
