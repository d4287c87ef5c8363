package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/mbeoliero/inbox/internal/config"
	"github.com/mbeoliero/inbox/internal/service"
	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (c *fakeConn) ReadMessage() ([]byte, error) { return nil, errors.New("eof") }

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) last(t *testing.T) WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.writes)
	var resp WSResponse
	require.NoError(t, json.Unmarshal(c.writes[len(c.writes)-1], &resp))
	return resp
}

type fakeServices struct {
	sendErr  error
	sent     []*service.SendMessageRequest
	cursors  []*service.UpdateReadCursorRequest
	notifCap int
}

func (f *fakeServices) SendMessage(_ context.Context, senderId string, req *service.SendMessageRequest) (*chatsync.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, req)
	return &chatsync.Message{Id: "m1", ConversationId: req.ConversationId, SenderId: senderId, Content: req.Content, ClientMsgId: req.ClientMsgId, CreatedAt: 42}, nil
}

func (f *fakeServices) ListMessages(_ context.Context, _ string, req *service.ListMessagesRequest) ([]*chatsync.Message, error) {
	return []*chatsync.Message{{Id: "m0", ConversationId: req.ConversationId, CreatedAt: req.Before - 1}}, nil
}

func (f *fakeServices) GetUserConversations(_ context.Context, userId string) ([]*chatsync.Conversation, error) {
	return []*chatsync.Conversation{{Id: "c1", Participants: []string{userId, "bob"}}}, nil
}

func (f *fakeServices) UpdateReadCursor(_ context.Context, _ string, req *service.UpdateReadCursorRequest) error {
	f.cursors = append(f.cursors, req)
	return nil
}

func (f *fakeServices) ListNotifications(_ context.Context, _ string, limit int) ([]*chatsync.Notification, error) {
	f.notifCap = limit
	return nil, nil
}

func newTestServer(svc *fakeServices) *WsServer {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return NewWsServer(cfg, nil, svc, svc, svc)
}

func request(t *testing.T, ident int32, data any) []byte {
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	b, err := json.Marshal(WSRequest{ReqIdentifier: ident, MsgIncr: "7", Data: raw})
	require.NoError(t, err)
	return b
}

func TestClient_SendMsg(t *testing.T) {
	svc := &fakeServices{}
	conn := &fakeConn{}
	client := NewClient(conn, "alice", 5, SDKTypeJS, "conn-1", newTestServer(svc))

	err := client.handleMessage(request(t, WSSendMsg, SendMsgReq{ConversationId: "c1", Content: "hi", ClientMsgId: "k1"}))
	require.NoError(t, err)

	resp := conn.last(t)
	assert.Equal(t, int32(WSSendMsg), resp.ReqIdentifier)
	assert.Equal(t, "7", resp.MsgIncr)
	assert.Equal(t, 0, resp.ErrCode)

	var msg chatsync.Message
	require.NoError(t, json.Unmarshal(resp.Data, &msg))
	assert.Equal(t, "m1", msg.Id)
	assert.Equal(t, "alice", msg.SenderId)
	require.Len(t, svc.sent, 1)
	assert.Equal(t, "k1", svc.sent[0].ClientMsgId)
}

func TestClient_ServiceErrorCarriesCode(t *testing.T) {
	svc := &fakeServices{sendErr: errcode.ErrConvArchived}
	conn := &fakeConn{}
	client := NewClient(conn, "alice", 5, SDKTypeJS, "conn-1", newTestServer(svc))

	require.NoError(t, client.handleMessage(request(t, WSSendMsg, SendMsgReq{ConversationId: "c1", Content: "hi"})))
	resp := conn.last(t)
	assert.Equal(t, errcode.ErrConvArchived.Code, resp.ErrCode)
	assert.Equal(t, errcode.ErrConvArchived.Msg, resp.ErrMsg)
}

func TestClient_ProtocolErrors(t *testing.T) {
	conn := &fakeConn{}
	client := NewClient(conn, "alice", 5, SDKTypeJS, "conn-1", newTestServer(&fakeServices{}))

	require.NoError(t, client.handleMessage([]byte("not json")))
	assert.Equal(t, WSDataError, conn.last(t).ErrCode)

	require.NoError(t, client.handleMessage(request(t, 9999, nil)))
	assert.Equal(t, ErrInvalidProtocol.Error(), conn.last(t).ErrMsg)

	b, _ := json.Marshal(WSRequest{ReqIdentifier: WSSendMsg, SendId: "mallory"})
	require.NoError(t, client.handleMessage(b))
	assert.Equal(t, ErrUserIdMismatch.Error(), conn.last(t).ErrMsg)
}

func TestClient_MarkReadAndLists(t *testing.T) {
	svc := &fakeServices{}
	conn := &fakeConn{}
	client := NewClient(conn, "alice", 5, SDKTypeJS, "conn-1", newTestServer(svc))

	require.NoError(t, client.handleMessage(request(t, WSMarkRead, MarkReadReq{ConversationId: "c1", ReadAt: 100})))
	assert.Equal(t, 0, conn.last(t).ErrCode)
	require.Len(t, svc.cursors, 1)
	assert.Equal(t, int64(100), svc.cursors[0].ReadAt)

	require.NoError(t, client.handleMessage(request(t, WSListConvs, nil)))
	var convs []*chatsync.Conversation
	require.NoError(t, json.Unmarshal(conn.last(t).Data, &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, "c1", convs[0].Id)

	require.NoError(t, client.handleMessage(request(t, WSListNotifs, ListNotifsReq{Limit: 20})))
	assert.Equal(t, 20, svc.notifCap)

	require.NoError(t, client.handleMessage(request(t, WSPullMsg, PullMsgReq{ConversationId: "c1", Before: 50})))
	var msgs []*chatsync.Message
	require.NoError(t, json.Unmarshal(conn.last(t).Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(49), msgs[0].CreatedAt)
}

func TestWsServer_PushReachesEveryConnection(t *testing.T) {
	s := newTestServer(&fakeServices{})
	ctx := context.Background()

	web, cli := &fakeConn{}, &fakeConn{}
	s.registerClient(ctx, NewClient(web, "alice", 5, SDKTypeJS, "conn-1", s))
	s.registerClient(ctx, NewClient(cli, "alice", 6, SDKTypeGo, "conn-2", s))
	assert.Equal(t, int64(1), s.GetOnlineUserCount())
	assert.Equal(t, int64(2), s.GetOnlineConnCount())

	change := json.RawMessage(`{"entity_kind":"message","operation":"insert","row":{"id":"m1"}}`)
	s.processPushTask(ctx, &PushTask{UserId: "alice", Change: change})

	for _, conn := range []*fakeConn{web, cli} {
		resp := conn.last(t)
		assert.Equal(t, int32(WSPushChange), resp.ReqIdentifier)
		assert.JSONEq(t, string(change), string(resp.Data))
	}
}

func TestConnIndex_AddRemove(t *testing.T) {
	x := newConnIndex()
	s := newTestServer(&fakeServices{})

	a := NewClient(&fakeConn{}, "alice", 5, SDKTypeJS, "conn-1", s)
	b := NewClient(&fakeConn{}, "alice", 6, SDKTypeGo, "conn-2", s)
	assert.True(t, x.add(a))
	assert.False(t, x.add(b))
	assert.False(t, x.add(b), "re-adding a connection is a no-op")
	users, conns := x.counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 2, conns)
	assert.Len(t, x.clients("alice"), 2)

	removed, last := x.remove(a)
	assert.True(t, removed)
	assert.False(t, last)
	removed, _ = x.remove(a)
	assert.False(t, removed, "second remove is a no-op")
	assert.True(t, x.has("alice"))

	removed, last = x.remove(b)
	assert.True(t, removed)
	assert.True(t, last)
	assert.False(t, x.has("alice"))
	assert.Empty(t, x.clients("alice"))
}

func TestWsServer_DoubleUnregisterKeepsCounts(t *testing.T) {
	s := newTestServer(&fakeServices{})
	ctx := context.Background()

	a := NewClient(&fakeConn{}, "alice", 5, SDKTypeJS, "conn-1", s)
	s.registerClient(ctx, a)
	s.registerClient(ctx, NewClient(&fakeConn{}, "bob", 5, SDKTypeJS, "conn-2", s))
	s.unregisterClient(ctx, a)
	s.unregisterClient(ctx, a)

	assert.Equal(t, int64(1), s.GetOnlineUserCount())
	assert.Equal(t, int64(1), s.GetOnlineConnCount())
}
