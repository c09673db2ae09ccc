package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const CoursesKey = "courses"

// CourseLessonsKey returns the cache key for one course's lesson list.
func CourseLessonsKey(courseID uint) string {
	return fmt.Sprintf("course_%d_lessons", courseID)
}

// Cache is a read-through cache. Mutating operations on courses and
// lessons must call Invalidate explicitly; there is no implicit
// framework-level caching anywhere else.
type Cache interface {
	// GetOrSet returns the cached value for key, computing and storing
	// it with the given TTL on a miss. A TTL of 0 means no expiry.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, error)
	Invalidate(ctx context.Context, keys ...string) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *RedisCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	value, err = compute()
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return nil, err
	}
	return value, nil
}

func (r *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local Cache used in tests and in deployments
// without a configured Redis address.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	m.mu.Unlock()

	if ok && (entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt)) {
		return entry.value, nil
	}

	value, err := compute()
	if err != nil {
		return nil, err
	}

	entry = memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return value, nil
}

func (m *MemoryCache) Invalidate(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}
