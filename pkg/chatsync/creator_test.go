package chatsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dirIndex serializes directory access the way the engine loop does
type dirIndex struct {
	mu  sync.Mutex
	dir *Directory
}

func (i *dirIndex) lookup(_ context.Context, key, tag string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if c, ok := i.dir.FindByKey(key, tag); ok {
		return c.Id, true, nil
	}
	return "", false, nil
}

func (i *dirIndex) adopt(_ context.Context, conv *Conversation) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.dir.Upsert(conv)
	return nil
}

func TestCreator_Participants(t *testing.T) {
	c := NewCreator("alice", newMemStore(), &dirIndex{dir: NewDirectory()})

	parts, err := c.Participants([]string{"bob", " bob ", "alice", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, parts)

	_, err = c.Participants([]string{"alice"})
	assert.ErrorIs(t, err, ErrInvalidParticipants)
}

func TestCreator_FindOrCreateTwice(t *testing.T) {
	store := newMemStore()
	c := NewCreator("alice", store, &dirIndex{dir: NewDirectory()})
	ctx := context.Background()

	first, err := c.FindOrCreate(ctx, []string{"alice", "bob"}, "parcel-42")
	require.NoError(t, err)
	second, err := c.FindOrCreate(ctx, []string{"bob"}, "parcel-42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.creates)

	padded, err := c.FindOrCreate(ctx, []string{"bob"}, "  parcel-42 ")
	require.NoError(t, err)
	assert.Equal(t, first, padded)
	assert.Equal(t, 1, store.creates)

	other, err := c.FindOrCreate(ctx, []string{"bob"}, "parcel-43")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestCreator_ConcurrentCallsCollapse(t *testing.T) {
	store := newMemStore()
	store.createDelay = 50 * time.Millisecond
	c := NewCreator("alice", store, &dirIndex{dir: NewDirectory()})

	var wg sync.WaitGroup
	got := make([]string, 5)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := c.FindOrCreate(context.Background(), []string{"bob"}, "parcel-42")
			assert.NoError(t, err)
			got[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range got {
		assert.Equal(t, got[0], id)
	}
	assert.Equal(t, 1, store.creates)
}
