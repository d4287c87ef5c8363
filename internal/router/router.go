package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/inbox/internal/config"
	"github.com/mbeoliero/inbox/internal/gateway"
	"github.com/mbeoliero/inbox/internal/handler"
	"github.com/mbeoliero/inbox/internal/middleware"
	"github.com/mbeoliero/inbox/pkg/constant"
)

// SetupRouter sets up all routes
func SetupRouter(h *server.Hertz, cfg *config.Config, handlers *Handlers, wsServer *gateway.WsServer) {
	h.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	// Health check
	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]any{
			"status":       "ok",
			"online_users": wsServer.GetOnlineUserCount(),
			"online_conns": wsServer.GetOnlineConnCount(),
		})
	})

	auth := middleware.JWTAuth(cfg.JWT.Secret)

	// Conversation routes (auth required)
	convGroup := h.Group("/conversation", auth)
	{
		convGroup.POST("/find_or_create", handlers.Conversation.FindOrCreate)
		convGroup.GET("/list", handlers.Conversation.GetConversationList)
		convGroup.PUT("/read_cursor", handlers.Conversation.UpdateReadCursor)
		convGroup.PUT("/archive", handlers.Conversation.SetArchived)
	}

	// Message routes (auth required)
	msgGroup := h.Group("/message", auth)
	{
		msgGroup.POST("/send", handlers.Message.SendMessage)
		msgGroup.GET("/list", handlers.Message.ListMessages)
	}

	// Notification routes (auth required)
	notifGroup := h.Group("/notification", auth)
	{
		notifGroup.GET("/list", handlers.Notification.ListNotifications)
		notifGroup.PUT("/read", handlers.Notification.MarkRead)
		notifGroup.DELETE("/clear", handlers.Notification.Clear)
		// producer hook for order status and inquiry systems
		notifGroup.POST("/create", middleware.RequirePlatform(constant.PlatformIdService), handlers.Notification.Create)
	}

	// WebSocket route, token passed as query parameter
	h.GET("/ws", wsServer.HandleConnection)
}

// Handlers holds all HTTP handlers
type Handlers struct {
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Notification *handler.NotificationHandler
}
