package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/pkg/session"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := session.New(1, "admin", now, time.Hour)
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestExpired(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := session.New(2, "user", now, time.Hour)

	assert.False(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(59*time.Minute)))
	assert.True(t, s.Expired(now.Add(time.Hour)))
}
