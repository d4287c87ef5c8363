package chatsync

import "sync"

type changeKey struct {
	kind           ChangeKind
	conversationId string
}

// changeQueue buffers changes for the notify goroutine. Below its limit it
// keeps every change in order. At the limit a change replaces the queued one
// with the same kind and conversation and moves to the tail, so the queue
// stays bounded by the number of distinct keys and the last queued change
// always carries the newest totals.
type changeQueue struct {
	mu     sync.Mutex
	items  []Change
	limit  int
	signal chan struct{}
}

func newChangeQueue(limit int) *changeQueue {
	return &changeQueue{limit: limit, signal: make(chan struct{}, 1)}
}

// push never blocks. It reports whether an older change was folded into ch.
func (q *changeQueue) push(ch Change) (coalesced bool) {
	q.mu.Lock()
	if len(q.items) >= q.limit {
		key := changeKey{ch.Kind, ch.ConversationId}
		for i, old := range q.items {
			if (changeKey{old.Kind, old.ConversationId}) == key {
				q.items = append(q.items[:i], q.items[i+1:]...)
				coalesced = true
				break
			}
		}
	}
	q.items = append(q.items, ch)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return coalesced
}

// drain takes every queued change, oldest first
func (q *changeQueue) drain() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *changeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
