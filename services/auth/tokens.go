package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"doemais/utils"

	"github.com/go-redis/redis/v8"
)

// ErrTokenNotFound is returned for unknown, revoked or expired tokens.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore remembers which token hashes are live and whom they belong to.
type TokenStore interface {
	Save(ctx context.Context, hash, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, hash string) (string, error)
	Delete(ctx context.Context, hash string) error
}

// RedisTokenStore keeps token hashes under the auth: prefix.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func tokenKey(hash string) string {
	return utils.AuthCachePrefix + "token:" + hash
}

func (s *RedisTokenStore) Save(ctx context.Context, hash, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, tokenKey(hash), userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Lookup(ctx context.Context, hash string) (string, error) {
	userID, err := s.client.Get(ctx, tokenKey(hash)).Result()
	if err == redis.Nil {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return userID, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, hash string) error {
	if err := s.client.Del(ctx, tokenKey(hash)).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

type memoryToken struct {
	userID  string
	expires time.Time
}

// MemoryTokenStore is an in-process TokenStore.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memoryToken), now: time.Now}
}

func (s *MemoryTokenStore) Save(ctx context.Context, hash, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[hash] = memoryToken{userID: userID, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Lookup(ctx context.Context, hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[hash]
	if !ok {
		return "", ErrTokenNotFound
	}
	if s.now().After(tok.expires) {
		delete(s.tokens, hash)
		return "", ErrTokenNotFound
	}
	return tok.userID, nil
}

func (s *MemoryTokenStore) Delete(ctx context.Context, hash string) error {
	s.mu.Lock()
	delete(s.tokens, hash)
	s.mu.Unlock()
	return nil
}
