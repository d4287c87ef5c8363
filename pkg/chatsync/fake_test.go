package chatsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errArchived = errors.New("conversation archived")

// memStore is an in-memory Store
type memStore struct {
	mu     sync.Mutex
	seq    int
	now    int64
	convs  map[string]*Conversation
	msgs   map[string][]*Message
	notifs map[string]*Notification

	listErr     error
	sendErr     error
	sendGate    chan struct{}
	cursorErr   error
	clearErr    error
	readErr     map[string]error
	createDelay time.Duration
	creates     int
	pulls       int
}

func newMemStore() *memStore {
	return &memStore{
		now:     1000,
		convs:   make(map[string]*Conversation),
		msgs:    make(map[string][]*Message),
		notifs:  make(map[string]*Notification),
		readErr: make(map[string]error),
	}
}

func (s *memStore) tick() int64 {
	s.now += 10
	return s.now
}

func (s *memStore) addConversation(id string, createdAt int64, participants ...string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Conversation{
		Id:           id,
		Participants: NormalizeParticipants(participants),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		LastActivity: createdAt,
		ReadCursors:  map[string]int64{},
	}
	s.convs[id] = c
	return c.clone()
}

// insertMessage stores a message without notifying anyone, as if it landed during a disconnect
func (s *memStore) insertMessage(convId, sender, content string, createdAt int64) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	m := &Message{Id: fmt.Sprintf("m%d", s.seq), ConversationId: convId, SenderId: sender, Content: content, CreatedAt: createdAt}
	s.msgs[convId] = append(s.msgs[convId], m)
	if c := s.convs[convId]; c != nil && createdAt > c.LastActivity {
		c.LastActivity = createdAt
		c.Preview = content
		c.UpdatedAt = createdAt
	}
	cp := *m
	return &cp
}

func (s *memStore) addNotification(id, owner string, createdAt int64) *Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &Notification{Id: id, OwnerId: owner, Type: "order_status", Title: "t-" + id, CreatedAt: createdAt, UpdatedAt: createdAt}
	s.notifs[id] = n
	cp := *n
	return &cp
}

func (s *memStore) ListConversations(_ context.Context, userId string) ([]*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*Conversation
	for _, c := range s.convs {
		if c.HasParticipant(userId) {
			out = append(out, c.clone())
		}
	}
	return out, nil
}

func (s *memStore) ListMessages(_ context.Context, conversationId string, before int64, limit int) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := append([]*Message(nil), s.msgs[conversationId]...)
	sort.Slice(all, func(i, j int) bool { return all[i].before(all[j]) })
	var out []*Message
	for _, m := range all {
		if before > 0 && m.CreatedAt >= before {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) ListNotifications(_ context.Context, userId string, _ int) ([]*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Notification
	for _, n := range s.notifs {
		if n.OwnerId == userId {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CreateConversation(_ context.Context, participants []string, contextTag string) (*Conversation, error) {
	if s.createDelay > 0 {
		time.Sleep(s.createDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	s.seq++
	now := s.tick()
	c := &Conversation{
		Id:           fmt.Sprintf("c%d", s.seq),
		Participants: NormalizeParticipants(participants),
		ContextTag:   contextTag,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
		ReadCursors:  map[string]int64{},
	}
	s.convs[c.Id] = c
	return c.clone(), nil
}

func (s *memStore) SendMessage(_ context.Context, conversationId, senderId, content, clientMsgId string) (*Message, error) {
	if s.sendGate != nil {
		<-s.sendGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.seq++
	m := &Message{
		Id:             fmt.Sprintf("m%d", s.seq),
		ConversationId: conversationId,
		SenderId:       senderId,
		Content:        content,
		ClientMsgId:    clientMsgId,
		CreatedAt:      s.tick(),
	}
	s.msgs[conversationId] = append(s.msgs[conversationId], m)
	cp := *m
	return &cp, nil
}

func (s *memStore) setListErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *memStore) cursor(convId, userId string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convs[convId].ReadCursors[userId]
}

func (s *memStore) SetReadCursor(_ context.Context, userId, conversationId string, readAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursorErr != nil {
		return s.cursorErr
	}
	if c := s.convs[conversationId]; c != nil && readAt > c.ReadCursors[userId] {
		c.ReadCursors[userId] = readAt
	}
	return nil
}

func (s *memStore) MarkNotificationRead(_ context.Context, notificationId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr[notificationId]; err != nil {
		return err
	}
	if n := s.notifs[notificationId]; n != nil {
		n.Read = true
	}
	return nil
}

func (s *memStore) ClearNotifications(_ context.Context, userId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	for id, n := range s.notifs {
		if n.OwnerId == userId {
			delete(s.notifs, id)
		}
	}
	return nil
}

// fakeTransport hands the sink to the test and blocks until the engine stops
type fakeTransport struct {
	sinks chan TransportSink
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sinks: make(chan TransportSink, 1)}
}

func (t *fakeTransport) Run(ctx context.Context, sink TransportSink) error {
	t.sinks <- sink
	<-ctx.Done()
	return ctx.Err()
}

func (t *fakeTransport) sink(tb testing.TB) TransportSink {
	select {
	case s := <-t.sinks:
		return s
	case <-time.After(2 * time.Second):
		tb.Fatal("transport never attached")
		return nil
	}
}

func messageChange(tb testing.TB, m *Message) RawChange {
	return change(tb, KindMessage, OpInsert, m)
}

func change(tb testing.TB, kind EntityKind, op Operation, row any) RawChange {
	b, err := json.Marshal(row)
	require.NoError(tb, err)
	return RawChange{EntityKind: kind, Operation: op, Row: b}
}
