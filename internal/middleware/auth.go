package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/mbeoliero/inbox/pkg/jwt"
	"github.com/mbeoliero/inbox/pkg/response"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer token
	BearerPrefix = "Bearer "
	// TokenQuery is the query key browsers use for the websocket upgrade
	TokenQuery = "token"
	// UserIdKey is the context key for user Id
	UserIdKey = "user_id"
	// PlatformIdKey is the context key for platform Id
	PlatformIdKey = "platform_id"
)

// JWTAuth is the JWT authentication middleware
func JWTAuth(secret string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		tokenString, err := extractToken(c)
		if err != nil {
			response.ErrorWithCode(ctx, c, err)
			c.Abort()
			return
		}

		claims, parseErr := jwt.ParseClaims(tokenString, secret)
		if parseErr != nil {
			response.Error(ctx, c, parseErr)
			c.Abort()
			return
		}

		// Store user info in context
		c.Set(UserIdKey, claims.UserId)
		c.Set(PlatformIdKey, claims.PlatformId)

		c.Next(ctx)
	}
}

// RequirePlatform rejects callers whose token was not issued for platformId
func RequirePlatform(platformId int) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if GetPlatformId(c) != platformId {
			response.ErrorWithCode(ctx, c, errcode.ErrNoPermission)
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

func extractToken(c *app.RequestContext) (string, *errcode.Error) {
	authHeader := string(c.GetHeader(AuthorizationHeader))
	if authHeader == "" {
		if token := c.Query(TokenQuery); token != "" {
			return token, nil
		}
		return "", errcode.ErrTokenMissing
	}
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", errcode.ErrTokenInvalid
	}
	return strings.TrimPrefix(authHeader, BearerPrefix), nil
}

// GetUserId gets user Id from context
func GetUserId(c *app.RequestContext) string {
	if v, ok := c.Get(UserIdKey); ok {
		return v.(string)
	}
	return ""
}

// GetPlatformId gets platform Id from context
func GetPlatformId(c *app.RequestContext) int {
	if v, ok := c.Get(PlatformIdKey); ok {
		return v.(int)
	}
	return 0
}
