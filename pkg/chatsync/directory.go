package chatsync

import "sort"

// Directory is the session's table of conversations
type Directory struct {
	convs map[string]*Conversation
	// byKey indexes conversations by participant key and context tag
	byKey map[string]string
}

// NewDirectory creates an empty Directory
func NewDirectory() *Directory {
	return &Directory{
		convs: make(map[string]*Conversation),
		byKey: make(map[string]string),
	}
}

func directoryKey(participantKey, contextTag string) string {
	return participantKey + "#" + contextTag
}

// Get returns the stored conversation. The result must not be mutated by callers outside the loop.
func (d *Directory) Get(conversationId string) (*Conversation, bool) {
	c, ok := d.convs[conversationId]
	return c, ok
}

// Len returns the number of known conversations
func (d *Directory) Len() int {
	return len(d.convs)
}

// Upsert inserts or merges conv. Preview and last activity never move
// backwards and read cursors only advance. Reports whether anything changed.
func (d *Directory) Upsert(conv *Conversation) bool {
	cur, ok := d.convs[conv.Id]
	if !ok {
		c := conv.clone()
		c.Participants = NormalizeParticipants(c.Participants)
		if c.ReadCursors == nil {
			c.ReadCursors = make(map[string]int64)
		}
		d.convs[c.Id] = c
		d.byKey[directoryKey(c.Key(), c.ContextTag)] = c.Id
		return true
	}

	changed := false
	if conv.LastActivity > cur.LastActivity {
		cur.LastActivity = conv.LastActivity
		cur.Preview = conv.Preview
		changed = true
	}
	if conv.Title != "" && conv.Title != cur.Title {
		cur.Title = conv.Title
		changed = true
	}
	if conv.UpdatedAt > cur.UpdatedAt {
		cur.UpdatedAt = conv.UpdatedAt
	}
	if cur.CreatedAt == 0 && conv.CreatedAt > 0 {
		cur.CreatedAt = conv.CreatedAt
		changed = true
	}
	for user, ts := range conv.ReadCursors {
		if ts > cur.ReadCursors[user] {
			cur.ReadCursors[user] = ts
			changed = true
		}
	}
	return changed
}

// TouchOnMessage moves preview and last activity forward for msg
func (d *Directory) TouchOnMessage(conversationId string, msg *Message) bool {
	c, ok := d.convs[conversationId]
	if !ok {
		return false
	}
	if msg.CreatedAt < c.LastActivity {
		return false
	}
	if msg.CreatedAt == c.LastActivity && c.Preview != "" {
		return false
	}
	c.LastActivity = msg.CreatedAt
	c.Preview = msg.Content
	return true
}

// AdvanceCursor sets the read cursor of userId if ts is newer
func (d *Directory) AdvanceCursor(conversationId, userId string, ts int64) bool {
	c, ok := d.convs[conversationId]
	if !ok || ts <= c.ReadCursors[userId] {
		return false
	}
	c.ReadCursors[userId] = ts
	return true
}

// Cursor returns the read cursor of userId, defaulting to the conversation creation time
func (d *Directory) Cursor(conversationId, userId string) int64 {
	c, ok := d.convs[conversationId]
	if !ok {
		return 0
	}
	if ts, ok := c.ReadCursors[userId]; ok && ts > c.CreatedAt {
		return ts
	}
	return c.CreatedAt
}

// FindByKey returns the conversation for a normalized participant key and context tag
func (d *Directory) FindByKey(participantKey, contextTag string) (*Conversation, bool) {
	id, ok := d.byKey[directoryKey(participantKey, contextTag)]
	if !ok {
		return nil, false
	}
	return d.convs[id], true
}

// List returns copies of the conversations userId takes part in, most recent activity first
func (d *Directory) List(userId string) []*Conversation {
	out := make([]*Conversation, 0, len(d.convs))
	for _, c := range d.convs {
		if c.HasParticipant(userId) {
			out = append(out, c.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity != out[j].LastActivity {
			return out[i].LastActivity > out[j].LastActivity
		}
		return out[i].Id < out[j].Id
	})
	return out
}

// Ids returns all known conversation ids
func (d *Directory) Ids() []string {
	ids := make([]string, 0, len(d.convs))
	for id := range d.convs {
		ids = append(ids, id)
	}
	return ids
}
