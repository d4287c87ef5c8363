package chatsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifications_UnreadCount(t *testing.T) {
	agg := NewNotifications()
	agg.Upsert(&Notification{Id: "n1", CreatedAt: 10})
	agg.Upsert(&Notification{Id: "n2", CreatedAt: 20})
	agg.Upsert(&Notification{Id: "n3", CreatedAt: 30, Read: true})
	assert.Equal(t, 2, agg.UnreadCount())

	assert.True(t, agg.MarkRead("n1"))
	assert.False(t, agg.MarkRead("n1"))
	assert.Equal(t, 1, agg.UnreadCount())

	// redelivered unread row at the same version keeps the local read
	assert.False(t, agg.Upsert(&Notification{Id: "n1", CreatedAt: 10}))
	assert.Equal(t, 1, agg.UnreadCount())

	// a newer row wins
	agg.Upsert(&Notification{Id: "n1", CreatedAt: 10, UpdatedAt: 40})
	assert.Equal(t, 2, agg.UnreadCount())

	assert.Equal(t, []string{"n1", "n2"}, agg.UnreadIds())
}

func TestNotifications_ClearAndRestore(t *testing.T) {
	agg := NewNotifications()
	agg.Upsert(&Notification{Id: "n1", CreatedAt: 10})
	agg.Upsert(&Notification{Id: "n2", CreatedAt: 20, Read: true})

	removed := agg.Clear()
	assert.Len(t, removed, 2)
	assert.Equal(t, 0, agg.UnreadCount())
	assert.Empty(t, agg.List())

	agg.Restore(removed)
	assert.Equal(t, 1, agg.UnreadCount())
	list := agg.List()
	if assert.Len(t, list, 2) {
		assert.Equal(t, "n2", list[0].Id)
	}
}
