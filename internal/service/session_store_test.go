package service

import (
	"context"
	"testing"
	"time"
	"trivia_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisSessionStore(rdb, 30*time.Minute)
	ctx := context.Background()

	s := newTestSession(3)
	_, err := s.Answer(s.current().Correct)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, 30*time.Minute, mr.TTL(sessionKey(s.ID)))

	loaded, err := store.Load(ctx, s.ID, s.UserID)
	require.NoError(t, err)
	assert.Equal(t, s.Score, loaded.Score)
	assert.Equal(t, StateAnswered, loaded.State)
	assert.Equal(t, s.Questions, loaded.Questions)

	_, err = store.Load(ctx, s.ID, s.UserID+1)
	assert.ErrorIs(t, err, util.ErrSessionNotFound, "another player's session stays hidden")

	deleted, err := store.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = store.Load(ctx, s.ID, s.UserID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	deleted, err = store.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "a second delete claims nothing")
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisSessionStore(rdb, time.Minute)
	ctx := context.Background()

	s := newTestSession(1)
	require.NoError(t, store.Save(ctx, s))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, s.ID, s.UserID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
