package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/mbeoliero/inbox/internal/middleware"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func asUser(userId string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Set(middleware.UserIdKey, userId)
		c.Next(ctx)
	}
}

func newTestEngine() *route.Engine {
	engine := route.NewEngine(config.NewOptions([]config.Option{}))

	conv := NewConversationHandler(nil)
	msg := NewMessageHandler(nil)
	notif := NewNotificationHandler(nil)

	anon := engine.Group("/anon")
	anon.GET("/conversations", conv.GetConversationList)
	anon.GET("/messages", msg.ListMessages)
	anon.GET("/notifications", notif.ListNotifications)

	authed := engine.Group("/me", asUser("alice"))
	authed.GET("/messages", msg.ListMessages)
	authed.POST("/send", msg.SendMessage)
	authed.PUT("/notification/read", notif.MarkRead)
	return engine
}

func perform(t *testing.T, engine *route.Engine, method, path, body string) apiResponse {
	t.Helper()
	var b *ut.Body
	if body != "" {
		b = &ut.Body{Body: bytes.NewBufferString(body), Len: len(body)}
	}
	w := ut.PerformRequest(engine, method, path, b, ut.Header{Key: "Content-Type", Value: "application/json"})
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	return resp
}

func TestHandlers_RequireUser(t *testing.T) {
	engine := newTestEngine()
	for _, path := range []string{"/anon/conversations", "/anon/messages?conversation_id=c1", "/anon/notifications"} {
		resp := perform(t, engine, consts.MethodGet, path, "")
		assert.Equal(t, errcode.ErrUnauthorized.Code, resp.Code, path)
	}
}

func TestHandlers_InvalidParams(t *testing.T) {
	engine := newTestEngine()

	resp := perform(t, engine, consts.MethodGet, "/me/messages", "")
	assert.Equal(t, errcode.ErrInvalidParam.Code, resp.Code)

	resp = perform(t, engine, consts.MethodPost, "/me/send", "{not json")
	assert.Equal(t, errcode.ErrInvalidParam.Code, resp.Code)

	resp = perform(t, engine, consts.MethodPut, "/me/notification/read", "{\"id\":")
	assert.Equal(t, errcode.ErrInvalidParam.Code, resp.Code)
}
