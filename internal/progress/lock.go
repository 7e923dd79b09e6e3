package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizbot/internal/errors"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockRetry = 25 * time.Millisecond
	releaseTimeout   = time.Second
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type LockerConfig struct {
	Redis  redis.UniversalClient
	Prefix string
	// TTL bounds how long a crashed holder can block a user.
	TTL time.Duration
	// Retry is the wait between attempts while the lock is busy.
	Retry time.Duration
}

// RedisLocker serializes turns of the same user across instances.
type RedisLocker struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(c LockerConfig) *RedisLocker {
	l := &RedisLocker{
		redis:  c.Redis,
		prefix: strings.TrimSpace(c.Prefix),
		ttl:    c.TTL,
		retry:  c.Retry,
	}

	if l.ttl <= 0 {
		l.ttl = defaultLockTTL
	}
	if l.retry <= 0 {
		l.retry = defaultLockRetry
	}

	return l
}

// Lock blocks until key is acquired or ctx is done. The returned func releases the lock.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.getLockKey(key)
	token := uuid.NewString()

	for {
		ok, err := l.redis.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}

		if ok {
			return func() { l.release(ctx, k, token) }, nil
		}

		if err := wait(ctx, l.retry); err != nil {
			return nil, errors.New(errors.CodeUnavailable,
				errors.WithMessagef("lock busy: key=%s", k),
				errors.WithCause(err))
		}
	}
}

func (l *RedisLocker) release(ctx context.Context, k, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, l.redis, []string{k}, token).Err(); err != nil {
		slog.ErrorContext(ctx, "progress: release lock failed", "key", k, "error", err)
	}
}

func (l *RedisLocker) getLockKey(key string) string {
	if l.prefix == "" {
		return fmt.Sprintf("lock:%s", key)
	}

	return fmt.Sprintf("%s:lock:%s", l.prefix, key)
}

// MemoryLocker serializes turns of the same user within one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLock
}

type memoryLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*memoryLock),
	}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &memoryLock{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.unref(key, e)
		}, nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("lock busy: key=%s", key),
			errors.WithCause(ctx.Err()))
	}
}

func (l *MemoryLocker) unref(key string, e *memoryLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
