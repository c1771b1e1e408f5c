// Package session wires cookie sessions to their backing store and carries
// the flash-message helpers used by the handlers.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultExpiration is the session lifetime without "remember me".
	DefaultExpiration = 24 * time.Hour
	// RememberExpiration is the extended lifetime with "remember me" set.
	RememberExpiration = 30 * 24 * time.Hour

	keyPrefix = "session:"
)

// RedisStorage adapts a go-redis client to fiber.Storage so session data is
// shared across processes and survives restarts.
type RedisStorage struct {
	rdb *redis.Client
}

// NewRedisStorage returns a fiber session storage backed by the given client.
func NewRedisStorage(rdb *redis.Client) *RedisStorage {
	return &RedisStorage{rdb: rdb}
}

// Get returns the value for key, or nil when the key does not exist.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	val, err := s.rdb.Get(context.Background(), keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// Set stores the value under key with the given expiration; exp == 0 keeps it
// until explicitly deleted.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.rdb.Set(context.Background(), keyPrefix+key, val, exp).Err()
}

// Delete removes key. Missing keys are not an error.
func (s *RedisStorage) Delete(key string) error {
	return s.rdb.Del(context.Background(), keyPrefix+key).Err()
}

// Reset removes all session keys.
func (s *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the underlying client.
func (s *RedisStorage) Close() error {
	return s.rdb.Close()
}

// NewStore builds the cookie-session store. With a Redis client the sessions
// live in Redis; otherwise Fiber's in-memory storage serves development and
// tests.
func NewStore(rdb *redis.Client) *session.Store {
	cfg := session.Config{
		Expiration:     DefaultExpiration,
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	}
	if rdb != nil {
		cfg.Storage = NewRedisStorage(rdb)
	}
	return session.New(cfg)
}
