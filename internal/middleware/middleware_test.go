package middleware

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/mbeoliero/inbox/pkg/constant"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/mbeoliero/inbox/pkg/jwt"
	"github.com/mbeoliero/inbox/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"no origin", "", nil, true},
		{"nothing configured", "https://a.example", nil, false},
		{"wildcard", "https://a.example", []string{"*"}, true},
		{"case insensitive", "https://A.example", []string{"https://a.example"}, true},
		{"not listed", "https://b.example", []string{"https://a.example"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OriginAllowed(tt.origin, tt.allowed))
		})
	}
}

func newEngine(secret string) *route.Engine {
	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	engine.GET("/me", JWTAuth(secret), func(ctx context.Context, c *app.RequestContext) {
		response.Success(ctx, c, map[string]any{"user_id": GetUserId(c), "platform_id": GetPlatformId(c)})
	})
	engine.POST("/produce", JWTAuth(secret), RequirePlatform(constant.PlatformIdService), func(ctx context.Context, c *app.RequestContext) {
		response.Success(ctx, c, nil)
	})
	return engine
}

func decode(t *testing.T, body []byte) response.Response {
	var resp response.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestJWTAuth(t *testing.T) {
	engine := newEngine("secret")
	token, err := jwt.GenerateToken("alice", constant.PlatformIdWeb, "secret", 1)
	require.NoError(t, err)

	w := ut.PerformRequest(engine, consts.MethodGet, "/me", nil, ut.Header{Key: AuthorizationHeader, Value: BearerPrefix + token})
	resp := decode(t, w.Result().Body())
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "alice", resp.Data.(map[string]any)["user_id"])

	// websocket style query token
	w = ut.PerformRequest(engine, consts.MethodGet, "/me?token="+token, nil)
	assert.Equal(t, 0, decode(t, w.Result().Body()).Code)

	w = ut.PerformRequest(engine, consts.MethodGet, "/me", nil)
	assert.Equal(t, errcode.ErrTokenMissing.Code, decode(t, w.Result().Body()).Code)

	w = ut.PerformRequest(engine, consts.MethodGet, "/me", nil, ut.Header{Key: AuthorizationHeader, Value: "Basic abc"})
	assert.Equal(t, errcode.ErrTokenInvalid.Code, decode(t, w.Result().Body()).Code)
}

func TestJWTAuth_BadSignature(t *testing.T) {
	engine := newEngine("secret")
	forged, err := jwt.GenerateToken("alice", constant.PlatformIdWeb, "other-secret", 1)
	require.NoError(t, err)

	w := ut.PerformRequest(engine, consts.MethodGet, "/me", nil, ut.Header{Key: AuthorizationHeader, Value: BearerPrefix + forged})
	resp := decode(t, w.Result().Body())
	assert.Equal(t, errcode.ErrTokenInvalid.Code, resp.Code)
	assert.Nil(t, resp.Data)
}

func TestRequirePlatform(t *testing.T) {
	engine := newEngine("secret")

	user, err := jwt.GenerateToken("alice", constant.PlatformIdWeb, "secret", 1)
	require.NoError(t, err)
	w := ut.PerformRequest(engine, consts.MethodPost, "/produce", nil, ut.Header{Key: AuthorizationHeader, Value: BearerPrefix + user})
	assert.Equal(t, errcode.ErrNoPermission.Code, decode(t, w.Result().Body()).Code)

	svc, err := jwt.GenerateToken("orders", constant.PlatformIdService, "secret", 1)
	require.NoError(t, err)
	w = ut.PerformRequest(engine, consts.MethodPost, "/produce", nil, ut.Header{Key: AuthorizationHeader, Value: BearerPrefix + svc})
	assert.Equal(t, 0, decode(t, w.Result().Body()).Code)
}

func TestCORS(t *testing.T) {
	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	engine.Use(CORS([]string{"https://app.example"}))
	ok := func(ctx context.Context, c *app.RequestContext) { response.Success(ctx, c, nil) }
	engine.GET("/x", ok)
	engine.OPTIONS("/x", ok)

	w := ut.PerformRequest(engine, consts.MethodGet, "/x", nil, ut.Header{Key: "Origin", Value: "https://app.example"})
	assert.Equal(t, "https://app.example", string(w.Result().Header.Peek("Access-Control-Allow-Origin")))
	assert.Equal(t, "true", string(w.Result().Header.Peek("Access-Control-Allow-Credentials")))

	w = ut.PerformRequest(engine, consts.MethodGet, "/x", nil, ut.Header{Key: "Origin", Value: "https://evil.example"})
	assert.Empty(t, w.Result().Header.Peek("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Result().Header.Peek("Access-Control-Allow-Credentials"))

	w = ut.PerformRequest(engine, consts.MethodOptions, "/x", nil, ut.Header{Key: "Origin", Value: "https://app.example"})
	assert.Equal(t, consts.StatusNoContent, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Header.Peek("Access-Control-Allow-Methods")), "PUT")
}
