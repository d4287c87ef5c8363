package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu           sync.Mutex
	changes      []chatsync.RawChange
	connected    int
	disconnected int
	changed      chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{changed: make(chan struct{}, 16)}
}

func (s *recordingSink) OnChange(c chatsync.RawChange) {
	s.mu.Lock()
	s.changes = append(s.changes, c)
	s.mu.Unlock()
	s.changed <- struct{}{}
}

func (s *recordingSink) OnConnected() {
	s.mu.Lock()
	s.connected++
	s.mu.Unlock()
}

func (s *recordingSink) OnDisconnected(error) {
	s.mu.Lock()
	s.disconnected++
	s.mu.Unlock()
}

func (s *recordingSink) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.changed:
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d of %d changes", i, n)
		}
	}
}

func pushFrameBytes(t *testing.T, id string) []byte {
	row, err := json.Marshal(chatsync.Message{Id: id, ConversationId: "c1", SenderId: "bob", Content: "hi", CreatedAt: 1})
	require.NoError(t, err)
	change, err := json.Marshal(chatsync.RawChange{EntityKind: chatsync.KindMessage, Operation: chatsync.OpInsert, Row: row})
	require.NoError(t, err)
	frame, err := json.Marshal(pushFrame{ReqIdentifier: WSPushChange, Data: change})
	require.NoError(t, err)
	return frame
}

func TestRealtime_DeliversAndReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var (
		mu    sync.Mutex
		dials int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"req_identifier":3001,"err_code":5003,"err_msg":"invalid protocol"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, pushFrameBytes(t, "m"+string(rune('0'+n))))
		if n == 1 {
			// drop the first connection to force a reconnect
			_ = conn.Close()
			return
		}
		// hold the second one open until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	rt := NewRealtime(srv.URL, RealtimeConfig{Token: "tok", ReconnectBaseDelay: 10 * time.Millisecond})
	sink := newRecordingSink()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx, sink) }()

	sink.wait(t, 2)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 2, sink.connected)
	require.Len(t, sink.changes, 2)
	assert.Equal(t, chatsync.KindMessage, sink.changes[0].EntityKind)
}

func TestRealtime_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	rt := NewRealtime(srv.URL, RealtimeConfig{Token: "bad"})
	err := rt.Run(context.Background(), newRecordingSink())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRealtime_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rt := NewRealtime(srv.URL, RealtimeConfig{Token: "tok", MaxReconnectAttempts: 2, ReconnectBaseDelay: time.Millisecond})
	err := rt.Run(context.Background(), newRecordingSink())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up")
}
