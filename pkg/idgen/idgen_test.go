package idgen

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonyflakeGenerator_Increasing(t *testing.T) {
	gen, err := NewSonyflakeGenerator(7)
	require.NoError(t, err)

	var last uint64
	for i := 0; i < 100; i++ {
		s, err := gen.NextID()
		require.NoError(t, err)
		id, err := strconv.ParseUint(s, 10, 64)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}
}

func TestUUIDGenerator(t *testing.T) {
	a, err := NewUUIDGenerator().NextID()
	require.NoError(t, err)
	b, err := NewUUIDGenerator().NextID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
}

func TestDefaultGenerator(t *testing.T) {
	SetDefaultGenerator(NewUUIDGenerator())
	defer SetDefaultGenerator(nil)

	id, err := NextID()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}
