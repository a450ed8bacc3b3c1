// Package lock provides Redis-backed mutual exclusion shared by the API and cron worker.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 25 * time.Hour

// ErrHeld is returned by Locker.Hold when another owner has the lock.
var ErrHeld = errors.New("lock is held by another owner")

// Lock coordinates exclusive runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock implements Lock using Redis SETNX + TTL with an owner token.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock if this instance still owns it. A lock that expired
// and was taken by someone else is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.client.CompareAndDelete(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}

type keyer interface {
	LockKey(name string) string
}

// Locker hands out short-lived named locks, e.g. one per product being edited.
type Locker struct {
	client redisStore
	keys   keyer
	ttl    time.Duration
}

// NewLocker builds a named-lock factory. Keys come from keys.LockKey.
func NewLocker(client redisStore, keys keyer, ttl time.Duration) (*Locker, error) {
	if client == nil || keys == nil {
		return nil, errors.New("redis client required for locker")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{client: client, keys: keys, ttl: ttl}, nil
}

// Hold acquires the named lock and returns its release func, or ErrHeld when someone else owns it.
func (l *Locker) Hold(ctx context.Context, name string) (func(context.Context) error, error) {
	rl, err := NewRedisLock(l.client, l.keys.LockKey(name), l.ttl)
	if err != nil {
		return nil, err
	}
	ok, err := rl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return rl.Release, nil
}
