package gateway

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/internal/config"
	"github.com/mbeoliero/inbox/internal/middleware"
	"github.com/mbeoliero/inbox/internal/repository"
	"github.com/mbeoliero/inbox/internal/service"
	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/constant"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/mbeoliero/inbox/pkg/jwt"
	"github.com/redis/go-redis/v9"
)

// MessageHandler is the message surface the gateway serves over the socket
type MessageHandler interface {
	SendMessage(ctx context.Context, senderId string, req *service.SendMessageRequest) (*chatsync.Message, error)
	ListMessages(ctx context.Context, userId string, req *service.ListMessagesRequest) ([]*chatsync.Message, error)
}

// ConversationHandler is the conversation surface the gateway serves over the socket
type ConversationHandler interface {
	GetUserConversations(ctx context.Context, userId string) ([]*chatsync.Conversation, error)
	UpdateReadCursor(ctx context.Context, userId string, req *service.UpdateReadCursorRequest) error
}

// NotificationLister lists notifications of a user
type NotificationLister interface {
	ListNotifications(ctx context.Context, userId string, limit int) ([]*chatsync.Notification, error)
}

// FeedSubscriber subscribes to the change feed of every user
type FeedSubscriber interface {
	Subscribe(ctx context.Context) *redis.PubSub
}

// WsServer is the WebSocket server
type WsServer struct {
	upgrader       *websocket.HertzUpgrader
	cfg            *config.Config
	conns          *connIndex
	registerChan   chan *Client
	unregisterChan chan *Client
	pushChan       chan *PushTask
	feed           FeedSubscriber
	msgService     MessageHandler
	convService    ConversationHandler
	notifService   NotificationLister
	maxConnNum     int64
}

// PushTask represents a change push task for one user
type PushTask struct {
	UserId string
	Change json.RawMessage
}

// NewWsServer creates a new WebSocket server
func NewWsServer(cfg *config.Config, feed FeedSubscriber, msgService MessageHandler, convService ConversationHandler, notifService NotificationLister) *WsServer {
	upgrader := &websocket.HertzUpgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     allowOrigin(cfg.Server.AllowedOrigins),
	}

	return &WsServer{
		upgrader:       upgrader,
		cfg:            cfg,
		conns:          newConnIndex(),
		registerChan:   make(chan *Client, 1000),
		unregisterChan: make(chan *Client, 1000),
		pushChan:       make(chan *PushTask, cfg.WebSocket.PushChannelSize),
		feed:           feed,
		msgService:     msgService,
		convService:    convService,
		notifService:   notifService,
		maxConnNum:     cfg.WebSocket.MaxConnNum,
	}
}

func allowOrigin(allowed []string) func(c *app.RequestContext) bool {
	return func(c *app.RequestContext) bool {
		return middleware.OriginAllowed(string(c.GetHeader("Origin")), allowed)
	}
}

// Run starts the WebSocket server
func (s *WsServer) Run(ctx context.Context) {
	go s.eventLoop(ctx)

	workerNum := s.cfg.WebSocket.PushWorkerNum
	if workerNum <= 0 {
		workerNum = 10
	}
	for i := 0; i < workerNum; i++ {
		go s.pushLoop(ctx)
	}

	if s.feed != nil {
		go s.feedLoop(ctx)
	}
	log.Info("started %d push workers", workerNum)
}

// eventLoop handles client registration and unregistration
func (s *WsServer) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-s.registerChan:
			s.registerClient(ctx, client)
		case client := <-s.unregisterChan:
			s.unregisterClient(ctx, client)
		}
	}
}

// pushLoop handles async change pushing
func (s *WsServer) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.pushChan:
			s.processPushTask(ctx, task)
		}
	}
}

// feedLoop forwards feed messages of locally connected users to the push workers
func (s *WsServer) feedLoop(ctx context.Context) {
	pubsub := s.feed.Subscribe(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				log.CtxWarn(ctx, "feed loop stopped: %v", ErrFeedClosed)
				return
			}
			userId, ok := repository.UserIdFromChannel(msg.Channel)
			if !ok || !s.conns.has(userId) {
				continue
			}
			if !json.Valid([]byte(msg.Payload)) {
				log.CtxWarn(ctx, "drop feed message: user_id=%s, error=%v", userId, ErrMalformedChange)
				continue
			}
			s.AsyncPushToUser(userId, json.RawMessage(msg.Payload))
		}
	}
}

// processPushTask pushes one change to every connection of the user
func (s *WsServer) processPushTask(ctx context.Context, task *PushTask) {
	for _, client := range s.conns.clients(task.UserId) {
		if err := client.PushChange(task.Change); err != nil {
			log.CtxDebug(ctx, "push to client failed: user_id=%s, conn_id=%s, error=%v", task.UserId, client.ConnId, err)
		}
	}
}

// registerClient registers a client
func (s *WsServer) registerClient(ctx context.Context, client *Client) {
	first := s.conns.add(client)
	users, conns := s.conns.counts()
	log.CtxInfo(ctx, "client registered: user_id=%s, platform=%s, conn_id=%s, first_conn=%v, online_users=%d, online_conns=%d",
		client.UserId, constant.PlatformIdToName(client.PlatformId), client.ConnId, first, users, conns)
}

// unregisterClient unregisters a client
func (s *WsServer) unregisterClient(ctx context.Context, client *Client) {
	removed, last := s.conns.remove(client)
	if !removed {
		return
	}
	users, conns := s.conns.counts()
	log.CtxInfo(ctx, "client unregistered: user_id=%s, platform=%s, conn_id=%s, user_offline=%v, online_users=%d, online_conns=%d",
		client.UserId, constant.PlatformIdToName(client.PlatformId), client.ConnId, last, users, conns)
}

// UnregisterClient queues client for unregistration
func (s *WsServer) UnregisterClient(client *Client) {
	select {
	case s.unregisterChan <- client:
	default:
		log.Warn("unregister channel full: user_id=%s", client.UserId)
	}
}

// HandleConnection upgrades GET /ws?token= and serves the socket until it closes
func (s *WsServer) HandleConnection(ctx context.Context, c *app.RequestContext) {
	if _, conns := s.conns.counts(); int64(conns) >= s.maxConnNum {
		c.String(503, errcode.ErrConnOverLimit.Msg)
		return
	}

	claims, err := jwt.ParseClaims(c.Query(QueryToken), s.cfg.JWT.Secret)
	if err != nil {
		log.CtxDebug(ctx, "token validation failed: error=%v", err)
		c.String(401, "unauthorized")
		return
	}
	sdkType := c.Query(QuerySDKType)

	err = s.upgrader.Upgrade(c, func(conn *websocket.Conn) {
		connId := uuid.New().String()
		client := NewClient(newSocket(conn, socketOptionsFrom(s.cfg.WebSocket)), claims.UserId, claims.PlatformId, sdkType, connId, s)

		s.registerChan <- client

		// blocks until the connection closes
		client.readLoop()
	})
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: %v", err)
	}
}

// AsyncPushToUser queues a change push to all connections of a user
func (s *WsServer) AsyncPushToUser(userId string, change json.RawMessage) {
	select {
	case s.pushChan <- &PushTask{UserId: userId, Change: change}:
	default:
		log.Warn("push channel full, change dropped: user_id=%s", userId)
	}
}

// GetOnlineUserCount returns the number of users connected to this instance
func (s *WsServer) GetOnlineUserCount() int64 {
	users, _ := s.conns.counts()
	return int64(users)
}

// GetOnlineConnCount returns the number of sockets open on this instance
func (s *WsServer) GetOnlineConnCount() int64 {
	_, conns := s.conns.counts()
	return int64(conns)
}

// ========== Message Handlers ==========

// HandleSendMsg handles send message request
func (s *WsServer) HandleSendMsg(ctx context.Context, client *Client, req *WSRequest) (any, error) {
	var sendReq SendMsgReq
	if err := json.Unmarshal(req.Data, &sendReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	return s.msgService.SendMessage(ctx, client.UserId, &service.SendMessageRequest{
		ConversationId: sendReq.ConversationId,
		Content:        sendReq.Content,
		ClientMsgId:    sendReq.ClientMsgId,
	})
}

// HandlePullMsg handles pull messages request
func (s *WsServer) HandlePullMsg(ctx context.Context, client *Client, req *WSRequest) (any, error) {
	var pullReq PullMsgReq
	if err := json.Unmarshal(req.Data, &pullReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	return s.msgService.ListMessages(ctx, client.UserId, &service.ListMessagesRequest{
		ConversationId: pullReq.ConversationId,
		Before:         pullReq.Before,
		Limit:          pullReq.Limit,
	})
}

// HandleMarkRead handles read cursor request
func (s *WsServer) HandleMarkRead(ctx context.Context, client *Client, req *WSRequest) (any, error) {
	var markReq MarkReadReq
	if err := json.Unmarshal(req.Data, &markReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	err := s.convService.UpdateReadCursor(ctx, client.UserId, &service.UpdateReadCursorRequest{
		ConversationId: markReq.ConversationId,
		ReadAt:         markReq.ReadAt,
	})
	return nil, err
}

// HandleListConvs handles list conversations request
func (s *WsServer) HandleListConvs(ctx context.Context, client *Client, _ *WSRequest) (any, error) {
	return s.convService.GetUserConversations(ctx, client.UserId)
}

// HandleListNotifs handles list notifications request
func (s *WsServer) HandleListNotifs(ctx context.Context, client *Client, req *WSRequest) (any, error) {
	var listReq ListNotifsReq
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &listReq); err != nil {
			return nil, errcode.ErrInvalidParam
		}
	}
	return s.notifService.ListNotifications(ctx, client.UserId, listReq.Limit)
}
