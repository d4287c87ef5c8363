package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h app.HandlerFunc) Response {
	t.Helper()
	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	engine.GET("/x", h)
	w := ut.PerformRequest(engine, consts.MethodGet, "/x", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())

	var resp Response
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	return resp
}

func TestError_WrappedCode(t *testing.T) {
	resp := serve(t, func(ctx context.Context, c *app.RequestContext) {
		Error(ctx, c, fmt.Errorf("send: %w", errcode.ErrConvArchived))
	})
	assert.Equal(t, errcode.ErrConvArchived.Code, resp.Code)
	assert.Equal(t, errcode.ErrConvArchived.Msg, resp.Msg)
	assert.False(t, resp.Retryable)
}

func TestError_HidesUnclassified(t *testing.T) {
	resp := serve(t, func(ctx context.Context, c *app.RequestContext) {
		Error(ctx, c, errors.New("dial tcp 10.0.0.3:3306: connection refused"))
	})
	assert.Equal(t, errcode.ErrInternalServer.Code, resp.Code)
	assert.NotContains(t, resp.Msg, "10.0.0.3")
	assert.True(t, resp.Retryable)
}

func TestSuccess(t *testing.T) {
	resp := serve(t, func(ctx context.Context, c *app.RequestContext) {
		Success(ctx, c, map[string]int{"n": 1})
	})
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, map[string]any{"n": float64(1)}, resp.Data)
}
