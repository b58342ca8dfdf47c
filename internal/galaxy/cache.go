package galaxy

import (
	"container/list"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"starfield-server/internal/shared/errors"
	sharedredis "starfield-server/internal/shared/redis"
	"starfield-server/internal/starfield"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "starfield:buffer:"

// BufferCache stores generated buffers by parameter fingerprint. Generation
// is deterministic, so an entry never goes stale; TTLs only bound memory.
type BufferCache interface {
	// Get returns nil without error on a miss.
	Get(ctx context.Context, fingerprint string) (*starfield.StarBuffer, error)
	Set(ctx context.Context, fingerprint string, buf *starfield.StarBuffer) error
}

// NewBufferCache uses redis when a client is available and an in-process
// LRU otherwise.
func NewBufferCache(client *sharedredis.Client, ttl time.Duration, memorySize int, logger *slog.Logger) BufferCache {
	if client == nil {
		logger.Info("Using in-memory star buffer cache", "capacity", memorySize)
		return NewMemoryBufferCache(memorySize)
	}
	logger.Info("Using redis star buffer cache", "ttl", ttl)
	return &RedisBufferCache{client: client.Client, ttl: ttl}
}

type RedisBufferCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *RedisBufferCache) Get(ctx context.Context, fingerprint string) (*starfield.StarBuffer, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+fingerprint).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapExternal("failed to read star buffer from redis", err)
	}

	var buf starfield.StarBuffer
	if err := buf.UnmarshalBinary(data); err != nil {
		return nil, errors.WrapInternal("failed to decode cached star buffer", err)
	}
	return &buf, nil
}

func (c *RedisBufferCache) Set(ctx context.Context, fingerprint string, buf *starfield.StarBuffer) error {
	data, err := buf.MarshalBinary()
	if err != nil {
		return errors.WrapInternal("failed to encode star buffer", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+fingerprint, data, c.ttl).Err(); err != nil {
		return errors.WrapExternal("failed to write star buffer to redis", err)
	}
	return nil
}

// MemoryBufferCache is a fixed-capacity LRU of buffers.
type MemoryBufferCache struct {
	capacity int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

type memoryEntry struct {
	fingerprint string
	buf         *starfield.StarBuffer
}

func NewMemoryBufferCache(capacity int) *MemoryBufferCache {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryBufferCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *MemoryBufferCache) Get(_ context.Context, fingerprint string) (*starfield.StarBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*memoryEntry).buf, nil
}

func (c *MemoryBufferCache) Set(_ context.Context, fingerprint string, buf *starfield.StarBuffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[fingerprint]; ok {
		el.Value.(*memoryEntry).buf = buf
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[fingerprint] = c.order.PushFront(&memoryEntry{fingerprint: fingerprint, buf: buf})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).fingerprint)
	}
	return nil
}

// Len is the number of cached buffers.
func (c *MemoryBufferCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
