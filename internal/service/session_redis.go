package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "adminapi:session:"

// RedisSessionStore keeps sessions in Redis so that several server
// instances share admin logins. Entries expire in Redis at the end of the
// session lifetime; Sweep has nothing to do.
type RedisSessionStore struct {
	client *redis.Client
}

// RedisOptions configures NewRedisSessionStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisSessionStore connects to Redis and verifies the connection.
func NewRedisSessionStore(ctx context.Context, opts RedisOptions) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}

	return &RedisSessionStore{client: client}, nil
}

// Close closes the Redis client.
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}

func (r *RedisSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := r.client.Get(ctx, redisSessionPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Put(ctx context.Context, s *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return r.Delete(ctx, s.Token)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisSessionPrefix+s.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Touch refreshes with SET XX, so a key deleted by a concurrent logout
// stays deleted and the session is reported invalid.
func (r *RedisSessionStore) Touch(ctx context.Context, token string, now time.Time, ttl time.Duration) (bool, error) {
	s, err := r.Get(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// The key lives until the session's own expiry, not ttl past the
	// last refresh.
	remaining := s.CreatedAt.Add(ttl).Sub(now)
	if remaining <= 0 {
		return false, r.Delete(ctx, token)
	}

	s.LastAccess = now
	data, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.client.SetXX(ctx, redisSessionPrefix+token, data, remaining).Result()
	if err != nil {
		return false, fmt.Errorf("redis refresh session: %w", err)
	}
	return ok, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, redisSessionPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
