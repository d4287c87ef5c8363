package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenParticipantKey(t *testing.T) {
	tests := []struct {
		name  string
		users []string
		want  string
	}{
		{"sorted", []string{"alice", "bob"}, "alice|bob"},
		{"unsorted", []string{"bob", "alice"}, "alice|bob"},
		{"duplicates", []string{"bob", "alice", "bob"}, "alice|bob"},
		{"ids with separators", []string{"u_2:b", "u_1:a"}, "u_1:a|u_2:b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenParticipantKey(tt.users))
		})
	}
}

func TestConversation_ToConversationInfo(t *testing.T) {
	conv := &Conversation{Id: "1", ContextTag: "parcel-42", LastActivity: 300, CreatedAt: 100, UpdatedAt: 300}
	info := conv.ToConversationInfo([]*ConversationMember{
		{UserId: "bob", ReadAt: 250},
		{UserId: "alice"},
	})

	assert.Equal(t, []string{"alice", "bob"}, info.Participants)
	assert.Equal(t, map[string]int64{"bob": 250}, info.ReadCursors)
	assert.Equal(t, "parcel-42", info.ContextTag)
	assert.Equal(t, int64(300), info.LastActivity)
}

func TestNotification_Link(t *testing.T) {
	n := &Notification{Id: "n1", OwnerId: "alice"}
	require.NoError(t, n.SetLink(map[string]string{"route": "/orders/7"}))
	assert.Equal(t, map[string]string{"route": "/orders/7"}, n.ToNotificationInfo().Link)

	broken := "{"
	n.Link = &broken
	assert.Nil(t, n.ToNotificationInfo().Link)

	require.NoError(t, n.SetLink(nil))
	assert.Nil(t, n.Link)
}
