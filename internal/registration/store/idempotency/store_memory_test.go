package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveIsFirstWriterWins(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Reserve(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReservationExpires(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	ok, err := store.Reserve(ctx, "abc", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	current = current.Add(2 * time.Minute)
	ok, err = store.Reserve(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseFreesTheKey(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "abc", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "abc"))

	ok, err = store.Reserve(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
