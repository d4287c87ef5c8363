package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/mbeoliero/kit/log"
	"go.uber.org/multierr"
)

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	// Window is the number of recent messages kept per conversation
	Window int
	// NotificationLimit bounds the notification pull
	NotificationLimit int
	// RetryInitial and RetryMaxElapsed shape the backoff for pulls
	RetryInitial    time.Duration
	RetryMaxElapsed time.Duration
	// EventBuffer is the capacity of the push and command channels
	EventBuffer int
	// ChangeBuffer is the subscriber queue length past which queued changes
	// of the same kind and conversation are coalesced
	ChangeBuffer int
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.NotificationLimit <= 0 {
		o.NotificationLimit = 100
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = 500 * time.Millisecond
	}
	if o.RetryMaxElapsed <= 0 {
		o.RetryMaxElapsed = 30 * time.Second
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 256
	}
	if o.ChangeBuffer <= 0 {
		o.ChangeBuffer = 256
	}
	return o
}

// Engine keeps one user's conversations, messages, unread counters and
// notifications in sync. All state is owned by a single loop goroutine;
// push events, pull results and command effects are funneled into it.
type Engine struct {
	userId    string
	store     Store
	transport Transport
	opts      Options

	events  chan RawChange
	ops     chan func()
	changes *changeQueue

	// owned by the loop goroutine
	dir       *Directory
	cache     *MessageCache
	rec       *Reconciler
	notifs    *Notifications
	buf       *Buffer
	norm      *Normalizer
	open      map[string]struct{}
	hydrating map[string]struct{}
	connected   bool
	resyncing   bool
	resyncAgain bool

	creator *Creator

	subsMu  sync.RWMutex
	subs    map[int64]func(Change)
	nextSub int64

	started atomic.Bool
	// resyncs counts completed connect-triggered refreshes
	resyncs atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an Engine for userId. Call Start to begin syncing.
func New(userId string, store Store, transport Transport, opts Options) *Engine {
	opts = opts.withDefaults()
	dir := NewDirectory()
	cache := NewMessageCache(opts.Window)
	e := &Engine{
		userId:    userId,
		store:     store,
		transport: transport,
		opts:      opts,
		events:    make(chan RawChange, opts.EventBuffer),
		ops:       make(chan func(), opts.EventBuffer),
		changes:   newChangeQueue(opts.ChangeBuffer),
		dir:       dir,
		cache:     cache,
		rec:       NewReconciler(userId, dir, cache),
		notifs:    NewNotifications(),
		buf:       NewBuffer(dir),
		norm:      NewNormalizer(userId, dir),
		open:      make(map[string]struct{}),
		hydrating: make(map[string]struct{}),
		subs:      make(map[int64]func(Change)),
	}
	e.creator = NewCreator(userId, store, e)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// UserId returns the session owner
func (e *Engine) UserId() string {
	return e.userId
}

// Start runs the loop, loads the initial state and attaches the push transport
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("engine already started")
	}

	e.wg.Add(2)
	go e.eventLoop()
	go e.notifyLoop()

	if err := e.Refresh(ctx); err != nil {
		log.CtxWarn(ctx, "initial load incomplete: user_id=%s, error=%v", e.userId, err)
	}

	if e.transport != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.transport.Run(e.ctx, engineSink{e}); err != nil && !errors.Is(err, context.Canceled) {
				log.CtxError(e.ctx, "push transport stopped: user_id=%s, error=%v", e.userId, err)
			}
		}()
	}

	log.CtxInfo(ctx, "sync engine started: user_id=%s", e.userId)
	return nil
}

// Close stops the engine and waits for its goroutines
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) eventLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case raw := <-e.events:
			e.applyEvent(e.norm.Normalize(e.ctx, raw))
		case op := <-e.ops:
			op()
		}
	}
}

// submit queues op for the loop without waiting. Must not be called from the loop.
func (e *Engine) submit(op func()) bool {
	select {
	case e.ops <- op:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// do runs fn on the loop and waits for it
func (e *Engine) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn()
	}
	select {
	case e.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return ErrEngineClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return ErrEngineClosed
	}
}

// retry runs op with exponential backoff until it succeeds, fails permanently or ctx ends
func (e *Engine) retry(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.RetryInitial
	b.MaxElapsedTime = e.opts.RetryMaxElapsed
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		log.CtxWarn(ctx, "%s failed, retry in %s: user_id=%s, error=%v", name, d, e.userId, err)
	})
}

// applyEvent runs on the loop
func (e *Engine) applyEvent(ev Event) {
	d, needHydrate := e.buf.Admit(ev)
	switch d {
	case Drop:
		return
	case Hold:
		if needHydrate {
			e.hydrateConversation(ev.(MessageInserted).Message.ConversationId)
		}
		return
	}

	switch ev := ev.(type) {
	case MessageInserted:
		e.applyMessage(ev.Message)
	case ConversationChanged:
		e.applyConversation(ev.Conversation)
	case NotificationInserted:
		e.applyNotification(ev.Notification)
	case NotificationUpdated:
		e.applyNotification(ev.Notification)
	}
}

func (e *Engine) applyMessage(msg *Message) {
	conv, ok := e.dir.Get(msg.ConversationId)
	if !ok || !conv.HasParticipant(e.userId) {
		return
	}
	if !e.cache.Append(msg.ConversationId, msg) {
		return
	}
	e.dir.TouchOnMessage(msg.ConversationId, msg)
	if msg.SenderId == e.userId {
		e.dir.AdvanceCursor(msg.ConversationId, e.userId, msg.CreatedAt)
	}
	e.emit(ChangeMessages, msg.ConversationId)
	e.emit(ChangeConversations, msg.ConversationId)
	if e.rec.Recompute(msg.ConversationId) {
		e.emit(ChangeUnread, msg.ConversationId)
	}
}

func (e *Engine) applyConversation(conv *Conversation) {
	if !e.dir.Upsert(conv) {
		return
	}
	e.emit(ChangeConversations, conv.Id)
	if e.rec.Recompute(conv.Id) {
		e.emit(ChangeUnread, conv.Id)
	}
	// replay messages that arrived before the conversation was known
	for _, ev := range e.buf.Release(conv.Id) {
		e.applyEvent(ev)
	}
}

func (e *Engine) applyNotification(n *Notification) {
	if e.notifs.Upsert(n) {
		e.emit(ChangeNotifications, "")
	}
}

// adoptConversations applies a conversation pull as an authoritative snapshot
func (e *Engine) adoptConversations(convs []*Conversation) {
	for _, c := range convs {
		c.Participants = NormalizeParticipants(c.Participants)
		if !c.HasParticipant(e.userId) {
			continue
		}
		e.buf.MarkSeen(KindConversation, c.Id, conversationVersion(c))
		e.applyConversation(c)
	}
}

func (e *Engine) adoptMessages(conversationId string, msgs []*Message) {
	if _, ok := e.dir.Get(conversationId); !ok {
		return
	}
	for _, m := range msgs {
		e.buf.MarkSeen(KindMessage, m.Id, m.CreatedAt)
	}
	if e.cache.Hydrate(conversationId, msgs) {
		e.emit(ChangeMessages, conversationId)
	}
	for _, m := range msgs {
		if e.dir.TouchOnMessage(conversationId, m) {
			e.emit(ChangeConversations, conversationId)
		}
	}
	if e.rec.Recompute(conversationId) {
		e.emit(ChangeUnread, conversationId)
	}
}

func (e *Engine) adoptNotifications(list []*Notification) {
	for _, n := range list {
		e.buf.MarkSeen(KindNotification, n.Id, notificationVersion(n))
	}
	e.notifs.Replace(list)
	e.emit(ChangeNotifications, "")
}

// hydrateConversation pulls the conversation list in the background so held
// events for conversationId can be replayed. Runs on the loop.
func (e *Engine) hydrateConversation(conversationId string) {
	if _, ok := e.hydrating[conversationId]; ok {
		return
	}
	e.hydrating[conversationId] = struct{}{}

	go func() {
		convs, err := e.pullConversations(e.ctx)
		e.submit(func() {
			delete(e.hydrating, conversationId)
			if err == nil {
				e.adoptConversations(convs)
			}
			if !e.buf.Waiting(conversationId) {
				return
			}
			dropped := e.buf.Release(conversationId)
			if err != nil {
				log.CtxWarn(e.ctx, "hydrate conversation failed, drop %d held events: conversation_id=%s, error=%v", len(dropped), conversationId, err)
				return
			}
			log.CtxDebug(e.ctx, "conversation not visible, drop %d held events: conversation_id=%s", len(dropped), conversationId)
		})
	}()
}

func (e *Engine) pullConversations(ctx context.Context) ([]*Conversation, error) {
	var convs []*Conversation
	err := e.retry(ctx, "list conversations", func() error {
		var err error
		convs, err = e.store.ListConversations(ctx, e.userId)
		return err
	})
	return convs, err
}

func (e *Engine) pullMessages(ctx context.Context, conversationId string) ([]*Message, error) {
	var msgs []*Message
	err := e.retry(ctx, "list messages", func() error {
		var err error
		msgs, err = e.store.ListMessages(ctx, conversationId, 0, e.opts.Window)
		return err
	})
	return msgs, err
}

func (e *Engine) pullNotifications(ctx context.Context) ([]*Notification, error) {
	var list []*Notification
	err := e.retry(ctx, "list notifications", func() error {
		var err error
		list, err = e.store.ListNotifications(ctx, e.userId, e.opts.NotificationLimit)
		return err
	})
	return list, err
}

// Refresh pulls conversations, notifications and every open conversation.
// Windows of conversations that are not open are marked stale.
func (e *Engine) Refresh(ctx context.Context) error {
	var errs error

	convs, err := e.pullConversations(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if err := e.do(ctx, func() { e.adoptConversations(convs) }); err != nil {
		return err
	}

	list, err := e.pullNotifications(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if err := e.do(ctx, func() { e.adoptNotifications(list) }); err != nil {
		return err
	}

	var open []string
	if err := e.do(ctx, func() {
		for _, id := range e.dir.Ids() {
			if _, ok := e.open[id]; ok {
				open = append(open, id)
			} else {
				conv, _ := e.dir.Get(id)
				e.cache.Invalidate(id, conv.LastActivity)
				if e.rec.Recompute(id) {
					e.emit(ChangeUnread, id)
				}
			}
		}
	}); err != nil {
		return err
	}

	for _, id := range open {
		if err := e.hydrateMessages(ctx, id); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (e *Engine) hydrateMessages(ctx context.Context, conversationId string) error {
	msgs, err := e.pullMessages(ctx, conversationId)
	if err != nil {
		return err
	}
	return e.do(ctx, func() { e.adoptMessages(conversationId, msgs) })
}

// startResync refreshes the session after every connect, the first one
// included: pushes sent before the subscription existed are never replayed.
// A connect that lands while a resync runs schedules one more. Runs on the loop.
func (e *Engine) startResync() {
	if e.resyncing {
		e.resyncAgain = true
		return
	}
	e.resyncing = true

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		log.CtxInfo(e.ctx, "push transport connected, resync: user_id=%s", e.userId)
		if err := e.Refresh(e.ctx); err != nil {
			log.CtxWarn(e.ctx, "resync incomplete: user_id=%s, error=%v", e.userId, err)
		}
		e.submit(func() {
			e.resyncs.Add(1)
			e.resyncing = false
			if e.resyncAgain {
				e.resyncAgain = false
				e.startResync()
			}
		})
	}()
}

// Subscribe registers fn for state changes. Callbacks run on a dedicated
// goroutine and may call back into the engine. Returns an unsubscribe func.
func (e *Engine) Subscribe(fn func(Change)) func() {
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subsMu.Unlock()

	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

// emit runs on the loop
func (e *Engine) emit(kind ChangeKind, conversationId string) {
	ch := Change{
		Kind:           kind,
		ConversationId: conversationId,
		TotalUnread:    e.rec.Total() + e.notifs.UnreadCount(),
		Connected:      e.connected,
	}
	if e.changes.push(ch) {
		log.CtxDebug(e.ctx, "subscriber lagging, change coalesced: user_id=%s, kind=%s", e.userId, kind)
	}
}

func (e *Engine) notifyLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.changes.signal:
			for _, ch := range e.changes.drain() {
				e.subsMu.RLock()
				subs := make([]func(Change), 0, len(e.subs))
				for _, fn := range e.subs {
					subs = append(subs, fn)
				}
				e.subsMu.RUnlock()
				for _, fn := range subs {
					e.deliver(fn, ch)
				}
			}
		}
	}
}

func (e *Engine) deliver(fn func(Change), ch Change) {
	defer func() {
		if r := recover(); r != nil {
			log.CtxError(e.ctx, "subscriber panic: user_id=%s, kind=%s, panic=%v", e.userId, ch.Kind, r)
		}
	}()
	fn(ch)
}

// Snapshot returns the conversation list with unread counts
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := e.do(ctx, func() {
		convs := e.dir.List(e.userId)
		snap.Conversations = make([]ConversationView, 0, len(convs))
		for _, c := range convs {
			snap.Conversations = append(snap.Conversations, ConversationView{Conversation: *c, Unread: e.rec.Unread(c.Id)})
		}
		snap.UnreadMessages = e.rec.Total()
		snap.UnreadNotifications = e.notifs.UnreadCount()
		snap.TotalUnread = snap.UnreadMessages + snap.UnreadNotifications
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Messages returns the cached window of a conversation, oldest first
func (e *Engine) Messages(ctx context.Context, conversationId string) ([]*Message, error) {
	var msgs []*Message
	if err := e.do(ctx, func() { msgs = e.cache.Messages(conversationId) }); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Notifications returns all notifications, newest first
func (e *Engine) Notifications(ctx context.Context) ([]*Notification, error) {
	var list []*Notification
	if err := e.do(ctx, func() { list = e.notifs.List() }); err != nil {
		return nil, err
	}
	return list, nil
}

// OpenConversation marks a conversation open and hydrates its messages if needed.
// A failed pull is logged and leaves the last known state.
func (e *Engine) OpenConversation(ctx context.Context, conversationId string) error {
	var known, hydrated bool
	if err := e.do(ctx, func() {
		if _, known = e.dir.Get(conversationId); known {
			e.open[conversationId] = struct{}{}
			hydrated = e.cache.Hydrated(conversationId)
		}
	}); err != nil {
		return err
	}
	if !known {
		return ErrConversationNotFound
	}
	if hydrated {
		return nil
	}

	if err := e.hydrateMessages(ctx, conversationId); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.CtxWarn(ctx, "hydrate messages failed: conversation_id=%s, error=%v", conversationId, err)
	}
	return nil
}

// CloseConversation stops rehydrating a conversation on reconnect
func (e *Engine) CloseConversation(ctx context.Context, conversationId string) error {
	return e.do(ctx, func() { delete(e.open, conversationId) })
}

// LoadOlder fetches history older than before. The result is not cached.
func (e *Engine) LoadOlder(ctx context.Context, conversationId string, before int64, limit int) ([]*Message, error) {
	var msgs []*Message
	err := e.retry(ctx, "list older messages", func() error {
		var err error
		msgs, err = e.store.ListMessages(ctx, conversationId, before, limit)
		return err
	})
	return msgs, err
}

// SendMessage appends a pending message immediately and reconciles it with
// the store's answer. On failure the pending message is removed.
func (e *Engine) SendMessage(ctx context.Context, conversationId, text string) (*Message, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}

	clientMsgId := uuid.NewString()
	local := &Message{
		Id:             "local-" + clientMsgId,
		ConversationId: conversationId,
		SenderId:       e.userId,
		Content:        text,
		ClientMsgId:    clientMsgId,
		CreatedAt:      NowUnixMilli(),
		Pending:        true,
	}

	var known bool
	if err := e.do(ctx, func() {
		if _, known = e.dir.Get(conversationId); known && e.cache.Append(conversationId, local) {
			e.emit(ChangeMessages, conversationId)
		}
	}); err != nil {
		return nil, err
	}
	if !known {
		return nil, ErrConversationNotFound
	}

	stored, err := e.store.SendMessage(ctx, conversationId, e.userId, text, clientMsgId)
	settle := context.WithoutCancel(ctx)
	if err != nil {
		_ = e.do(settle, func() {
			if e.cache.Remove(conversationId, local.Id) {
				e.emit(ChangeMessages, conversationId)
			}
		})
		log.CtxWarn(ctx, "send message failed, rolled back: conversation_id=%s, client_msg_id=%s, error=%v", conversationId, clientMsgId, err)
		return nil, fmt.Errorf("send message: %w", err)
	}

	_ = e.do(settle, func() {
		e.buf.MarkSeen(KindMessage, stored.Id, stored.CreatedAt)
		e.cache.Confirm(conversationId, local.Id, stored)
		e.dir.TouchOnMessage(conversationId, stored)
		e.dir.AdvanceCursor(conversationId, e.userId, stored.CreatedAt)
		e.emit(ChangeMessages, conversationId)
		e.emit(ChangeConversations, conversationId)
		if e.rec.Recompute(conversationId) {
			e.emit(ChangeUnread, conversationId)
		}
	})
	return stored, nil
}

// MarkRead advances the read cursor optimistically and persists it.
// A rejected write restores the previous cursor.
func (e *Engine) MarkRead(ctx context.Context, conversationId string) error {
	var (
		known, changed bool
		ts             int64
	)
	if err := e.do(ctx, func() {
		if _, known = e.dir.Get(conversationId); !known {
			return
		}
		before := e.rec.Unread(conversationId)
		ts, changed = e.rec.MarkRead(conversationId, NowUnixMilli())
		if changed && e.rec.Unread(conversationId) != before {
			e.emit(ChangeUnread, conversationId)
		}
	}); err != nil {
		return err
	}
	if !known {
		return ErrConversationNotFound
	}
	if !changed {
		return nil
	}

	err := e.store.SetReadCursor(ctx, e.userId, conversationId, ts)
	_ = e.do(context.WithoutCancel(ctx), func() {
		before := e.rec.Unread(conversationId)
		if err != nil {
			e.rec.RejectRead(conversationId, ts)
		} else {
			e.rec.ConfirmRead(conversationId, ts)
		}
		if e.rec.Unread(conversationId) != before {
			e.emit(ChangeUnread, conversationId)
		}
	})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// StartConversation returns the conversation for participants and contextTag,
// creating it when the session does not know one. The session user is always a participant.
func (e *Engine) StartConversation(ctx context.Context, participants []string, contextTag string) (string, error) {
	return e.creator.FindOrCreate(ctx, participants, contextTag)
}

func (e *Engine) lookup(ctx context.Context, participantKey, contextTag string) (string, bool, error) {
	var (
		id    string
		found bool
	)
	err := e.do(ctx, func() {
		if c, ok := e.dir.FindByKey(participantKey, contextTag); ok {
			id, found = c.Id, true
		}
	})
	return id, found, err
}

func (e *Engine) adopt(ctx context.Context, conv *Conversation) error {
	return e.do(ctx, func() { e.adoptConversations([]*Conversation{conv}) })
}

// MarkNotificationRead flips one notification to read and persists it
func (e *Engine) MarkNotificationRead(ctx context.Context, notificationId string) error {
	var found, changed bool
	if err := e.do(ctx, func() {
		if found = e.notifs.Has(notificationId); !found {
			return
		}
		if changed = e.notifs.MarkRead(notificationId); changed {
			e.emit(ChangeNotifications, "")
		}
	}); err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	if !changed {
		return nil
	}

	if err := e.store.MarkNotificationRead(ctx, notificationId); err != nil {
		_ = e.do(context.WithoutCancel(ctx), func() {
			if e.notifs.MarkUnread(notificationId) {
				e.emit(ChangeNotifications, "")
			}
		})
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification read, one write per item.
// Items whose write fails are restored; the failures are combined in the returned error.
func (e *Engine) MarkAllNotificationsRead(ctx context.Context) error {
	var ids []string
	if err := e.do(ctx, func() {
		ids = e.notifs.UnreadIds()
		for _, id := range ids {
			e.notifs.MarkRead(id)
		}
		if len(ids) > 0 {
			e.emit(ChangeNotifications, "")
		}
	}); err != nil {
		return err
	}

	var (
		errs   error
		failed []string
	)
	for _, id := range ids {
		if err := e.store.MarkNotificationRead(ctx, id); err != nil {
			failed = append(failed, id)
			errs = multierr.Append(errs, fmt.Errorf("notification %s: %w", id, err))
		}
	}
	if len(failed) == 0 {
		return nil
	}

	_ = e.do(context.WithoutCancel(ctx), func() {
		for _, id := range failed {
			e.notifs.MarkUnread(id)
		}
		e.emit(ChangeNotifications, "")
	})
	log.CtxWarn(ctx, "mark all read partially failed: user_id=%s, failed=%d/%d", e.userId, len(failed), len(ids))
	return errs
}

// ClearNotifications removes all notifications locally and in the store
func (e *Engine) ClearNotifications(ctx context.Context) error {
	var removed []*Notification
	if err := e.do(ctx, func() {
		removed = e.notifs.Clear()
		e.emit(ChangeNotifications, "")
	}); err != nil {
		return err
	}

	if err := e.store.ClearNotifications(ctx, e.userId); err != nil {
		_ = e.do(context.WithoutCancel(ctx), func() {
			e.notifs.Restore(removed)
			e.emit(ChangeNotifications, "")
		})
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// engineSink adapts the engine to TransportSink without exposing the callbacks on Engine
type engineSink struct {
	e *Engine
}

func (s engineSink) OnChange(change RawChange) {
	select {
	case s.e.events <- change:
	case <-s.e.ctx.Done():
	}
}

func (s engineSink) OnConnected() {
	e := s.e
	e.submit(func() {
		e.connected = true
		e.emit(ChangeConnection, "")
		e.startResync()
	})
}

func (s engineSink) OnDisconnected(err error) {
	e := s.e
	log.CtxWarn(e.ctx, "push transport disconnected: user_id=%s, error=%v", e.userId, err)
	e.submit(func() {
		e.connected = false
		e.emit(ChangeConnection, "")
	})
}
