package chatsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeQueue_KeepsOrderBelowLimit(t *testing.T) {
	q := newChangeQueue(4)
	assert.False(t, q.push(Change{Kind: ChangeMessages, ConversationId: "c1", TotalUnread: 1}))
	assert.False(t, q.push(Change{Kind: ChangeMessages, ConversationId: "c1", TotalUnread: 2}))

	got := q.drain()
	assert.Len(t, got, 2)
	assert.Equal(t, 2, got[1].TotalUnread)
	assert.Empty(t, q.drain())
}

func TestChangeQueue_CoalescesAtLimit(t *testing.T) {
	q := newChangeQueue(2)
	q.push(Change{Kind: ChangeMessages, ConversationId: "c1", TotalUnread: 1})
	q.push(Change{Kind: ChangeUnread, ConversationId: "c1", TotalUnread: 1})
	for i := 2; i <= 50; i++ {
		q.push(Change{Kind: ChangeMessages, ConversationId: "c1", TotalUnread: i})
		q.push(Change{Kind: ChangeUnread, ConversationId: "c1", TotalUnread: i})
	}
	// a new key still gets in
	assert.False(t, q.push(Change{Kind: ChangeConnection, TotalUnread: 50, Connected: true}))

	got := q.drain()
	assert.Len(t, got, 3)
	assert.Equal(t, ChangeMessages, got[0].Kind)
	assert.Equal(t, 50, got[0].TotalUnread)
	assert.Equal(t, ChangeUnread, got[1].Kind)
	assert.Equal(t, ChangeConnection, got[2].Kind)
	assert.Equal(t, 50, got[len(got)-1].TotalUnread)
}
