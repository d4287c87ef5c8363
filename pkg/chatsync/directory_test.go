package chatsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_UpsertOnlyMovesForward(t *testing.T) {
	dir := NewDirectory()
	dir.Upsert(&Conversation{Id: "c1", Participants: []string{"bob", "alice"}, Preview: "new", LastActivity: 200, CreatedAt: 10})

	assert.False(t, dir.Upsert(&Conversation{Id: "c1", Preview: "old", LastActivity: 100}))

	c, ok := dir.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "new", c.Preview)
	assert.Equal(t, int64(200), c.LastActivity)
	assert.Equal(t, []string{"alice", "bob"}, c.Participants)

	assert.True(t, dir.Upsert(&Conversation{Id: "c1", Preview: "newer", LastActivity: 300}))
	c, _ = dir.Get("c1")
	assert.Equal(t, "newer", c.Preview)
}

func TestDirectory_TouchOnMessage(t *testing.T) {
	dir := NewDirectory()
	dir.Upsert(&Conversation{Id: "c1", Participants: []string{"alice", "bob"}, LastActivity: 100, Preview: "p"})

	assert.False(t, dir.TouchOnMessage("c1", msg("old", 90, "bob")))
	assert.True(t, dir.TouchOnMessage("c1", msg("new", 150, "bob")))

	c, _ := dir.Get("c1")
	assert.Equal(t, int64(150), c.LastActivity)
	assert.Equal(t, "hi new", c.Preview)
	assert.False(t, dir.TouchOnMessage("missing", msg("x", 1, "bob")))
}

func TestDirectory_ListOrderAndVisibility(t *testing.T) {
	dir := NewDirectory()
	dir.Upsert(&Conversation{Id: "a", Participants: []string{"alice", "bob"}, LastActivity: 100})
	dir.Upsert(&Conversation{Id: "b", Participants: []string{"alice", "carol"}, LastActivity: 300})
	dir.Upsert(&Conversation{Id: "c", Participants: []string{"bob", "carol"}, LastActivity: 500})
	dir.Upsert(&Conversation{Id: "d", Participants: []string{"alice", "dave"}, LastActivity: 100})

	var got []string
	for _, c := range dir.List("alice") {
		got = append(got, c.Id)
	}
	assert.Equal(t, []string{"b", "a", "d"}, got)
}

func TestDirectory_CursorDefaultsToCreation(t *testing.T) {
	dir := NewDirectory()
	dir.Upsert(&Conversation{Id: "c1", Participants: []string{"alice", "bob"}, CreatedAt: 40})

	assert.Equal(t, int64(40), dir.Cursor("c1", "alice"))
	assert.True(t, dir.AdvanceCursor("c1", "alice", 90))
	assert.False(t, dir.AdvanceCursor("c1", "alice", 80))
	assert.Equal(t, int64(90), dir.Cursor("c1", "alice"))
}

func TestDirectory_FindByKey(t *testing.T) {
	dir := NewDirectory()
	dir.Upsert(&Conversation{Id: "c1", Participants: []string{"bob", "alice"}, ContextTag: "parcel-42"})

	c, ok := dir.FindByKey(ParticipantKey([]string{"alice", "bob", "alice"}), "parcel-42")
	require.True(t, ok)
	assert.Equal(t, "c1", c.Id)

	_, ok = dir.FindByKey(ParticipantKey([]string{"alice", "bob"}), "parcel-43")
	assert.False(t, ok)
}
