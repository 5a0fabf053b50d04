package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"trivia_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

// SessionStore keeps in-flight quiz sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string, userID uint) (*Session, error)
	// Delete reports whether this call removed the session. Only one caller
	// sees true, so it doubles as the claim on finishing a quiz.
	Delete(ctx context.Context, id string) (bool, error)
}

type RedisSessionStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Redis: rdb, TTL: ttl}
}

func sessionKey(id string) string {
	return "quiz:session:" + id
}

// Save refreshes the TTL on every write so active players keep their session.
func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.Redis.Set(ctx, sessionKey(s.ID), data, r.TTL).Err()
}

// Load hides sessions owned by someone else behind ErrSessionNotFound.
func (r *RedisSessionStore) Load(ctx context.Context, id string, userID uint) (*Session, error) {
	data, err := r.Redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.UserID != userID {
		return nil, util.ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.Redis.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
