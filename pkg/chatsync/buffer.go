package chatsync

// Disposition is the buffer's verdict on an incoming event
type Disposition int

const (
	// Forward means the event is new and must be applied
	Forward Disposition = iota
	// Drop means the event was already applied or carries nothing
	Drop
	// Hold means the event waits for its conversation to be hydrated
	Hold
)

type entityKey struct {
	kind EntityKind
	id   string
}

// Buffer dedups events by (kind, id, version) and parks events that
// reference a conversation the session does not know yet.
type Buffer struct {
	convs   ConversationLookup
	seen    map[entityKey]int64
	pending map[string][]Event
}

// NewBuffer creates a Buffer that checks conversation presence through convs
func NewBuffer(convs ConversationLookup) *Buffer {
	return &Buffer{
		convs:   convs,
		seen:    make(map[entityKey]int64),
		pending: make(map[string][]Event),
	}
}

// Admit classifies ev. needHydrate is true when ev is the first event
// held for its conversation, so the caller should start exactly one pull.
func (b *Buffer) Admit(ev Event) (d Disposition, needHydrate bool) {
	key, version, ok := eventKey(ev)
	if !ok {
		return Drop, false
	}
	if v, exists := b.seen[key]; exists && v >= version {
		return Drop, false
	}

	if msg, isMsg := ev.(MessageInserted); isMsg {
		convId := msg.Message.ConversationId
		if _, known := b.convs.Get(convId); !known {
			_, waiting := b.pending[convId]
			b.pending[convId] = append(b.pending[convId], ev)
			return Hold, !waiting
		}
	}

	b.seen[key] = version
	return Forward, false
}

// MarkSeen records a version obtained from a pull so later duplicates are dropped
func (b *Buffer) MarkSeen(kind EntityKind, id string, version int64) {
	key := entityKey{kind: kind, id: id}
	if v, ok := b.seen[key]; !ok || version > v {
		b.seen[key] = version
	}
}

// Forget removes a seen entry, used when an optimistic change is rolled back
func (b *Buffer) Forget(kind EntityKind, id string) {
	delete(b.seen, entityKey{kind: kind, id: id})
}

// Release returns the events held for conversationId in arrival order
func (b *Buffer) Release(conversationId string) []Event {
	evs := b.pending[conversationId]
	delete(b.pending, conversationId)
	return evs
}

// Waiting reports whether events are held for conversationId
func (b *Buffer) Waiting(conversationId string) bool {
	_, ok := b.pending[conversationId]
	return ok
}

// PendingCount returns the number of held events
func (b *Buffer) PendingCount() int {
	n := 0
	for _, evs := range b.pending {
		n += len(evs)
	}
	return n
}

func eventKey(ev Event) (entityKey, int64, bool) {
	switch e := ev.(type) {
	case MessageInserted:
		return entityKey{kind: KindMessage, id: e.Message.Id}, e.Message.CreatedAt, true
	case ConversationChanged:
		return entityKey{kind: KindConversation, id: e.Conversation.Id}, conversationVersion(e.Conversation), true
	case NotificationInserted:
		return entityKey{kind: KindNotification, id: e.Notification.Id}, notificationVersion(e.Notification), true
	case NotificationUpdated:
		return entityKey{kind: KindNotification, id: e.Notification.Id}, notificationVersion(e.Notification), true
	}
	return entityKey{}, 0, false
}

func conversationVersion(c *Conversation) int64 {
	if c.UpdatedAt > 0 {
		return c.UpdatedAt
	}
	return c.LastActivity
}

func notificationVersion(n *Notification) int64 {
	if n.UpdatedAt > 0 {
		return n.UpdatedAt
	}
	return n.CreatedAt
}
