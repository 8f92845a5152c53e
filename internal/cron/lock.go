package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 25 * time.Hour

// Lock keeps a cycle to a single worker instance.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore is the slice of pkg/redis the lock needs.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a SETNX lock with a TTL so a crashed worker cannot hold it
// forever. Only the owner token that set the key may delete it.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	owner string
}

// NewRedisLock constructs a Redis-backed lock on key.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.owner = token
	}
	return ok, nil
}

// Release drops the lock if this instance still owns it. After a TTL expiry
// another worker may own the key, and it is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	if _, err := l.client.DeleteIfEquals(ctx, l.key, owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

// LocalLock serializes cycles inside one process. Used when the worker runs
// against SQLite without Redis.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
	return nil
}
