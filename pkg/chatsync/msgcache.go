package chatsync

import "sort"

// DefaultWindow is the number of most recent messages kept per conversation
const DefaultWindow = 50

type messageWindow struct {
	msgs     []*Message
	ids      map[string]struct{}
	hydrated bool
}

// MessageCache keeps a bounded, ordered window of recent messages per conversation
type MessageCache struct {
	window int
	convs  map[string]*messageWindow
}

// NewMessageCache creates a MessageCache holding at most window messages per conversation
func NewMessageCache(window int) *MessageCache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MessageCache{window: window, convs: make(map[string]*messageWindow)}
}

func (c *MessageCache) get(conversationId string) *messageWindow {
	w, ok := c.convs[conversationId]
	if !ok {
		w = &messageWindow{ids: make(map[string]struct{})}
		c.convs[conversationId] = w
	}
	return w
}

// Append inserts msg in (created_at, id) order. It is a no-op for a known id
// or for a message older than a full window. A confirmed message replaces
// the pending copy with the same client id.
func (c *MessageCache) Append(conversationId string, msg *Message) bool {
	w := c.get(conversationId)
	if _, ok := w.ids[msg.Id]; ok {
		return false
	}
	if !msg.Pending && msg.ClientMsgId != "" {
		for _, m := range w.msgs {
			if m.Pending && m.ClientMsgId == msg.ClientMsgId {
				w.remove(m.Id)
				break
			}
		}
	}
	if len(w.msgs) >= c.window && msg.before(w.msgs[0]) {
		return false
	}
	w.insert(msg)
	c.trim(w)
	return true
}

// Hydrate merges a pull result into the window and marks it hydrated.
// Live messages applied before the pull completed are kept.
func (c *MessageCache) Hydrate(conversationId string, msgs []*Message) bool {
	w := c.get(conversationId)
	changed := !w.hydrated
	for _, m := range msgs {
		if _, ok := w.ids[m.Id]; ok {
			continue
		}
		w.insert(m)
		changed = true
	}
	c.trim(w)
	w.hydrated = true
	return changed
}

// Remove drops a message, used to roll back an optimistic send
func (c *MessageCache) Remove(conversationId, messageId string) bool {
	w, ok := c.convs[conversationId]
	if !ok {
		return false
	}
	return w.remove(messageId)
}

// Confirm swaps the pending message localId for the stored message
func (c *MessageCache) Confirm(conversationId, localId string, stored *Message) {
	c.Remove(conversationId, localId)
	c.Append(conversationId, stored)
}

// Invalidate marks a window stale so the next open pulls it again.
// When lastActivity shows messages the window never saw, the confirmed
// messages are dropped as well so the conversation counts as unhydrated
// instead of counting a partial window. Pending sends always stay.
func (c *MessageCache) Invalidate(conversationId string, lastActivity int64) {
	w, ok := c.convs[conversationId]
	if !ok {
		return
	}
	w.hydrated = false

	var newest int64
	for _, m := range w.msgs {
		if !m.Pending && m.CreatedAt > newest {
			newest = m.CreatedAt
		}
	}
	if newest >= lastActivity {
		return
	}
	fresh := &messageWindow{ids: make(map[string]struct{})}
	for _, m := range w.msgs {
		if m.Pending {
			fresh.insert(m)
		}
	}
	c.convs[conversationId] = fresh
}

// Hydrated reports whether a pull has populated the conversation
func (c *MessageCache) Hydrated(conversationId string) bool {
	w, ok := c.convs[conversationId]
	return ok && w.hydrated
}

// Messages returns a copy of the cached window, oldest first
func (c *MessageCache) Messages(conversationId string) []*Message {
	w, ok := c.convs[conversationId]
	if !ok {
		return nil
	}
	out := make([]*Message, len(w.msgs))
	for i, m := range w.msgs {
		cp := *m
		out[i] = &cp
	}
	return out
}

// Latest returns the newest cached message
func (c *MessageCache) Latest(conversationId string) (*Message, bool) {
	w, ok := c.convs[conversationId]
	if !ok || len(w.msgs) == 0 {
		return nil, false
	}
	return w.msgs[len(w.msgs)-1], true
}

// CountAfter counts confirmed messages created after ts that were not sent by userId
func (c *MessageCache) CountAfter(conversationId, userId string, ts int64) int {
	w, ok := c.convs[conversationId]
	if !ok {
		return 0
	}
	// window is sorted, walk back from the newest message
	n := 0
	for i := len(w.msgs) - 1; i >= 0; i-- {
		m := w.msgs[i]
		if m.CreatedAt <= ts {
			break
		}
		if !m.Pending && m.SenderId != userId {
			n++
		}
	}
	return n
}

func (c *MessageCache) trim(w *messageWindow) {
	for len(w.msgs) > c.window {
		delete(w.ids, w.msgs[0].Id)
		w.msgs[0] = nil
		w.msgs = w.msgs[1:]
	}
}

func (w *messageWindow) insert(msg *Message) {
	cp := *msg
	i := sort.Search(len(w.msgs), func(i int) bool {
		return cp.before(w.msgs[i])
	})
	w.msgs = append(w.msgs, nil)
	copy(w.msgs[i+1:], w.msgs[i:])
	w.msgs[i] = &cp
	w.ids[cp.Id] = struct{}{}
}

func (w *messageWindow) remove(messageId string) bool {
	if _, ok := w.ids[messageId]; !ok {
		return false
	}
	for i, m := range w.msgs {
		if m.Id == messageId {
			w.msgs = append(w.msgs[:i], w.msgs[i+1:]...)
			break
		}
	}
	delete(w.ids, messageId)
	return true
}
