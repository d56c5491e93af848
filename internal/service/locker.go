package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookshop-pos/internal/redisclient"
	"bookshop-pos/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ledgerLockKey serializes operations addressed by row id rather than title
const ledgerLockKey = "ledger"

func titleLockKey(title string) string {
	return "title:" + title
}

// TitleLocker provides a critical section per key. The returned unlock
// func must be called exactly once; calling it again is a no-op.
type TitleLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is an in-process TitleLocker
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot)}
}

// Lock blocks until key is free or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.release(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) release(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// RedisLocker is a TitleLocker shared between processes through Redis leases
type RedisLocker struct {
	client        *redisclient.Client
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewRedisLocker creates a Redis-backed locker. ttl bounds how long a crashed
// holder can block others.
func NewRedisLocker(client *redisclient.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: 25 * time.Millisecond,
		logger:        util.GetLogger(),
	}
}

// Lock retries the lease until it is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	owner := uuid.New().String()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.AcquireLock(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			released, err := l.client.ReleaseLock(releaseCtx, key, owner)
			if err != nil {
				l.logger.Error("Failed to release lock", zap.String("key", key), zap.Error(err))
				return
			}
			if !released {
				l.logger.Warn("Lock expired before release", zap.String("key", key))
			}
		})
	}, nil
}
