package sessions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Create(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	userID, found, err := store.Resolve(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(7), userID)

	require.NoError(t, store.Revoke(ctx, id))
	_, found, err = store.Resolve(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, store.Len())
}

func TestMemoryStore_UnknownIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"", "missing"} {
		_, found, err := store.Resolve(ctx, id)
		require.NoError(t, err)
		assert.False(t, found)
		assert.NoError(t, store.Revoke(ctx, id))
	}
}

func TestMemoryStore_DistinctSessionsPerLogin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, err := store.Create(ctx, 1)
	require.NoError(t, err)
	b, err := store.Create(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, store.Revoke(ctx, a))
	userID, found, err := store.Resolve(ctx, b)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(1), userID)
}

func TestMemoryStore_RetriesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	ids := []string{"dup", "dup", "fresh"}
	store.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	ctx := context.Background()

	first, err := store.Create(ctx, 1)
	require.NoError(t, err)
	second, err := store.Create(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "dup", first)
	assert.Equal(t, "fresh", second)

	store.newID = func() string { return "dup" }
	_, err = store.Create(ctx, 3)
	assert.ErrorIs(t, err, ErrIDCollision)
}

func TestMemoryStore_ConcurrentUse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			id, err := store.Create(ctx, userID)
			if !assert.NoError(t, err) {
				return
			}
			got, found, err := store.Resolve(ctx, id)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, userID, got)
			assert.NoError(t, store.Revoke(ctx, id))
		}(uint(i + 1))
	}
	wg.Wait()

	assert.Zero(t, store.Len())
}
