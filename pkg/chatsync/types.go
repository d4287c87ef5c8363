package chatsync

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// EntityKind identifies the table a change notification originates from
type EntityKind string

const (
	KindConversation EntityKind = "conversation"
	KindMessage      EntityKind = "message"
	KindNotification EntityKind = "notification"
)

// Operation is the row operation carried by a change notification
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
)

// RawChange is a change notification as delivered by the push transport
type RawChange struct {
	EntityKind EntityKind      `json:"entity_kind"`
	Operation  Operation       `json:"operation"`
	Row        json.RawMessage `json:"row"`
}

// Conversation is the session view of a conversation row.
// ReadCursors holds the last-read timestamp of each participant.
type Conversation struct {
	Id           string           `json:"id"`
	Participants []string         `json:"participants"`
	ContextTag   string           `json:"context_tag,omitempty"`
	Title        string           `json:"title"`
	Preview      string           `json:"preview"`
	LastActivity int64            `json:"last_activity"`
	CreatedAt    int64            `json:"created_at"`
	UpdatedAt    int64            `json:"updated_at"`
	ReadCursors  map[string]int64 `json:"read_cursors,omitempty"`
}

// HasParticipant reports whether userId belongs to the conversation
func (c *Conversation) HasParticipant(userId string) bool {
	for _, p := range c.Participants {
		if p == userId {
			return true
		}
	}
	return false
}

// Key returns the participant key used for find-or-create
func (c *Conversation) Key() string {
	return ParticipantKey(c.Participants)
}

func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	if c.ReadCursors != nil {
		cp.ReadCursors = make(map[string]int64, len(c.ReadCursors))
		for k, v := range c.ReadCursors {
			cp.ReadCursors[k] = v
		}
	}
	return &cp
}

// Message is an immutable chat message. Pending marks an optimistic
// local copy that the store has not confirmed yet.
type Message struct {
	Id             string `json:"id"`
	ConversationId string `json:"conversation_id"`
	SenderId       string `json:"sender_id"`
	Content        string `json:"content"`
	ClientMsgId    string `json:"client_msg_id,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	Pending        bool   `json:"pending,omitempty"`
}

// before reports whether m sorts before o by (created_at, id)
func (m *Message) before(o *Message) bool {
	if m.CreatedAt != o.CreatedAt {
		return m.CreatedAt < o.CreatedAt
	}
	return m.Id < o.Id
}

// Notification is a system notification owned by a single user
type Notification struct {
	Id        string            `json:"id"`
	OwnerId   string            `json:"owner_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Read      bool              `json:"read"`
	Link      map[string]string `json:"link,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// ConversationView is a conversation with its derived unread count
type ConversationView struct {
	Conversation
	Unread int `json:"unread"`
}

// Snapshot is a consistent read-only view of the session state
type Snapshot struct {
	Conversations       []ConversationView `json:"conversations"`
	UnreadMessages      int                `json:"unread_messages"`
	UnreadNotifications int                `json:"unread_notifications"`
	TotalUnread         int                `json:"total_unread"`
}

// ChangeKind describes what part of the session state moved
type ChangeKind string

const (
	ChangeConversations ChangeKind = "conversations"
	ChangeMessages      ChangeKind = "messages"
	ChangeUnread        ChangeKind = "unread"
	ChangeNotifications ChangeKind = "notifications"
	ChangeConnection    ChangeKind = "connection"
)

// Change is delivered to subscribers after every state mutation
type Change struct {
	Kind           ChangeKind
	ConversationId string
	TotalUnread    int
	Connected      bool
}

// NormalizeParticipants sorts and dedupes participant ids, dropping empty ones
func NormalizeParticipants(participants []string) []string {
	set := make(map[string]struct{}, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := set[p]; ok {
			continue
		}
		set[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ParticipantKey returns a stable key for a participant set.
// Uses "|" as separator so ids containing ":" or "_" stay unambiguous.
func ParticipantKey(participants []string) string {
	return strings.Join(NormalizeParticipants(participants), "|")
}

// NormalizeContextTag trims the context tag so lookups and stored rows agree
func NormalizeContextTag(tag string) string {
	return strings.TrimSpace(tag)
}

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
