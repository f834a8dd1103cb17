package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per normalized email and blocks further
// attempts once the limit is hit inside the window. Known and unknown emails
// are counted the same way.
type LoginThrottle interface {
	Allowed(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

const throttleKeyPrefix = "blog:login_failures:"

type redisThrottle struct {
	client redis.Cmdable
	max    int
	window time.Duration
}

// NewRedisLoginThrottle stores failure counters in Redis so every API
// instance sees the same counts.
func NewRedisLoginThrottle(client redis.Cmdable, max int, window time.Duration) LoginThrottle {
	return &redisThrottle{client: client, max: max, window: window}
}

func (t *redisThrottle) Allowed(ctx context.Context, key string) (bool, error) {
	if t.max <= 0 {
		return true, nil
	}
	count, err := t.client.Get(ctx, throttleKeyPrefix+key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, err
	}
	return count < t.max, nil
}

func (t *redisThrottle) RecordFailure(ctx context.Context, key string) error {
	if t.max <= 0 {
		return nil
	}
	redisKey := throttleKeyPrefix + key
	// SET NX starts the window and INCR counts inside one MULTI, so a counter
	// never exists without a TTL.
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, redisKey, 0, t.window)
		pipe.Incr(ctx, redisKey)
		return nil
	})
	return err
}

func (t *redisThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, throttleKeyPrefix+key).Err()
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

type memoryThrottle struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	lastSweep time.Time
	max       int
	window    time.Duration
	now       func() time.Time
}

// NewMemoryLoginThrottle keeps counters in process. Used when Redis is not
// configured.
func NewMemoryLoginThrottle(max int, window time.Duration, now func() time.Time) LoginThrottle {
	if now == nil {
		now = time.Now
	}
	return &memoryThrottle{entries: make(map[string]memoryEntry), lastSweep: now(), max: max, window: window, now: now}
}

// sweep drops expired entries at most once per window. Callers hold mu.
func (t *memoryThrottle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.window {
		return
	}
	for k, e := range t.entries {
		if !now.Before(e.resetAt) {
			delete(t.entries, k)
		}
	}
	t.lastSweep = now
}

func (t *memoryThrottle) Allowed(_ context.Context, key string) (bool, error) {
	if t.max <= 0 {
		return true, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if !ok {
		return true, nil
	}
	if !t.now().Before(entry.resetAt) {
		delete(t.entries, key)
		return true, nil
	}
	return entry.count < t.max, nil
}

func (t *memoryThrottle) RecordFailure(_ context.Context, key string) error {
	if t.max <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.sweep(now)
	entry, ok := t.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = memoryEntry{resetAt: now.Add(t.window)}
	}
	entry.count++
	t.entries[key] = entry
	return nil
}

func (t *memoryThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
	return nil
}
