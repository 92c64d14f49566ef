package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type InMemoryTokenStorage struct {
	TokenMap map[string]string
	mutex    sync.Mutex
}

func NewInMemoryTokenStorage() *InMemoryTokenStorage {
	return &InMemoryTokenStorage{
		TokenMap: make(map[string]string),
	}
}

type RedisTokenStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisTokenStorage(client *redis.Client, namespace string) *RedisTokenStorage {
	return &RedisTokenStorage{client: client, namespace: namespace}
}

// Should be safe to use in concurrency
type TokenStorage interface {
	// Store the nonce for the given sessionId.
	// Should not return an error when the value already exists,
	// it should just update in that case.
	StoreToken(sessionId string, nonce string) error

	// Should retrieve the nonce for the given sessionId
	// and return an error in any case where it fails to do so.
	RetrieveToken(sessionId string) (string, error)

	// Should remove the token and return an error if it fails to do so.
	// The value not being there should also be considered an error.
	RemoveToken(sessionId string) error
}

// ------------------------------------------------------------------------------

func createKey(namespace, sessionId string) string {
	return fmt.Sprintf("%s:token:%s", namespace, sessionId)
}

// Attestation sessions are one-shot; half an hour is plenty to complete one.
const SessionTimeout time.Duration = 30 * time.Minute

func (s *RedisTokenStorage) StoreToken(sessionId string, nonce string) error {
	ctx := context.Background()
	return s.client.Set(ctx, createKey(s.namespace, sessionId), nonce, SessionTimeout).Err()
}

func (s *RedisTokenStorage) RetrieveToken(sessionId string) (string, error) {
	ctx := context.Background()
	return s.client.Get(ctx, createKey(s.namespace, sessionId)).Result()
}

func (s *RedisTokenStorage) RemoveToken(sessionId string) error {
	ctx := context.Background()
	return s.client.Del(ctx, createKey(s.namespace, sessionId)).Err()
}

// ------------------------------------------------------------------------------

func (s *InMemoryTokenStorage) StoreToken(sessionId, token string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.TokenMap[sessionId] = token
	return nil
}

func (s *InMemoryTokenStorage) RetrieveToken(sessionId string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if token, ok := s.TokenMap[sessionId]; ok {
		return token, nil
	} else {
		return "", fmt.Errorf("failed to find token for %s", sessionId)
	}
}

func (s *InMemoryTokenStorage) RemoveToken(sessionId string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.TokenMap[sessionId]; ok {
		delete(s.TokenMap, sessionId)
		return nil
	} else {
		return fmt.Errorf("failed to remove token for %s, because it wasn't there", sessionId)
	}
}

// ------------------------------------------------------------------------------

// ResultCache memoizes marshaled parse responses. Parsing is deterministic
// against a fixed reference table, so entries never go stale within a
// deploy; the TTL just bounds memory in redis.
type ResultCache interface {
	StoreResult(key string, payload []byte) error

	// RetrieveResult reports a miss via the bool; a miss is not an error.
	RetrieveResult(key string) ([]byte, bool)
}

const ResultCacheTimeout time.Duration = time.Hour

type RedisResultCache struct {
	client    *redis.Client
	namespace string
}

func NewRedisResultCache(client *redis.Client, namespace string) *RedisResultCache {
	return &RedisResultCache{client: client, namespace: namespace}
}

func (c *RedisResultCache) cacheKey(key string) string {
	return fmt.Sprintf("%s:parse:%s", c.namespace, key)
}

func (c *RedisResultCache) StoreResult(key string, payload []byte) error {
	ctx := context.Background()
	return c.client.Set(ctx, c.cacheKey(key), payload, ResultCacheTimeout).Err()
}

func (c *RedisResultCache) RetrieveResult(key string) ([]byte, bool) {
	ctx := context.Background()
	payload, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("failed to read parse result cache", "error", err)
		return nil, false
	}
	return payload, true
}

type InMemoryResultCache struct {
	results map[string][]byte
	mutex   sync.Mutex
}

func NewInMemoryResultCache() *InMemoryResultCache {
	return &InMemoryResultCache{results: make(map[string][]byte)}
}

func (c *InMemoryResultCache) StoreResult(key string, payload []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.results[key] = payload
	return nil
}

func (c *InMemoryResultCache) RetrieveResult(key string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	payload, ok := c.results[key]
	return payload, ok
}
