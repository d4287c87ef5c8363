package chatsync

// Reconciler derives unread counts from message timestamps and read cursors.
// Counts never depend on the order events arrived in.
type Reconciler struct {
	userId string
	dir    *Directory
	cache  *MessageCache

	// optimistic holds cursors written locally but not yet confirmed by the store
	optimistic map[string]int64
	unread     map[string]int
	total      int
}

// NewReconciler creates a Reconciler for userId over dir and cache
func NewReconciler(userId string, dir *Directory, cache *MessageCache) *Reconciler {
	return &Reconciler{
		userId:     userId,
		dir:        dir,
		cache:      cache,
		optimistic: make(map[string]int64),
		unread:     make(map[string]int),
	}
}

// Cursor returns the effective read cursor of the session user
func (r *Reconciler) Cursor(conversationId string) int64 {
	ts := r.dir.Cursor(conversationId, r.userId)
	if o, ok := r.optimistic[conversationId]; ok && o > ts {
		return o
	}
	return ts
}

// UnreadCount computes the unread count of a conversation from scratch
func (r *Reconciler) UnreadCount(conversationId string) int {
	conv, ok := r.dir.Get(conversationId)
	if !ok {
		return 0
	}
	cursor := r.Cursor(conversationId)
	n := r.cache.CountAfter(conversationId, r.userId, cursor)
	if n == 0 && !r.cache.Hydrated(conversationId) && conv.LastActivity > cursor {
		return 1
	}
	return n
}

// Recompute refreshes the cached count of one conversation and applies
// the delta to the running total. Reports whether the count moved.
func (r *Reconciler) Recompute(conversationId string) bool {
	n := r.UnreadCount(conversationId)
	old := r.unread[conversationId]
	if n == old {
		return false
	}
	r.unread[conversationId] = n
	r.total += n - old
	return true
}

// Unread returns the last computed count of a conversation
func (r *Reconciler) Unread(conversationId string) int {
	return r.unread[conversationId]
}

// Total returns the unread message count across all conversations
func (r *Reconciler) Total() int {
	return r.total
}

// MarkRead moves the optimistic cursor to now, or to the newest known
// activity when the local clock lags behind the store. Returns the cursor
// to persist and false when nothing would change.
func (r *Reconciler) MarkRead(conversationId string, now int64) (int64, bool) {
	conv, ok := r.dir.Get(conversationId)
	if !ok {
		return 0, false
	}
	ts := now
	if conv.LastActivity > ts {
		ts = conv.LastActivity
	}
	if latest, ok := r.cache.Latest(conversationId); ok && latest.CreatedAt > ts {
		ts = latest.CreatedAt
	}
	if ts < r.Cursor(conversationId) {
		return 0, false
	}
	r.optimistic[conversationId] = ts
	r.Recompute(conversationId)
	return ts, true
}

// ConfirmRead records a cursor the store accepted
func (r *Reconciler) ConfirmRead(conversationId string, ts int64) {
	r.dir.AdvanceCursor(conversationId, r.userId, ts)
	if o, ok := r.optimistic[conversationId]; ok && o <= ts {
		delete(r.optimistic, conversationId)
	}
	r.Recompute(conversationId)
}

// RejectRead drops an optimistic cursor the store refused. The confirmed cursor is untouched.
func (r *Reconciler) RejectRead(conversationId string, ts int64) {
	if o, ok := r.optimistic[conversationId]; ok && o == ts {
		delete(r.optimistic, conversationId)
	}
	r.Recompute(conversationId)
}
