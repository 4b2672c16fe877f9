package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	domrepo "FinLoad/internal/domain/repository"
	"FinLoad/pkg/cache"
)

// RunLockKey is the cache key guarding concurrent ingestion runs.
const RunLockKey = "ingest:lock"

// CacheRunLock implements RunLock on a cache.Service (Redis in production).
// While held, the lock's TTL is renewed every ttl/3, so a run may take any
// time and a crashed process frees the lock within one ttl.
type CacheRunLock struct {
	cache cache.Service
	key   string
	ttl   time.Duration
	token string

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewCacheRunLock(c cache.Service, ttl time.Duration) *CacheRunLock {
	return &CacheRunLock{cache: c, key: RunLockKey, ttl: ttl, token: newToken()}
}

func (l *CacheRunLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.cache.TryLock(ctx, l.key, l.token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	if ok {
		l.startRenewal()
	}
	return ok, nil
}

func (l *CacheRunLock) Release(ctx context.Context) error {
	l.stopRenewal()
	err := l.cache.Unlock(ctx, l.key, l.token)
	if err != nil && !errors.Is(err, cache.ErrLockNotHeld) {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

func (l *CacheRunLock) startRenewal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return
	}
	l.stop, l.done = make(chan struct{}), make(chan struct{})
	go l.renew(l.stop, l.done)
}

func (l *CacheRunLock) stopRenewal() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

func (l *CacheRunLock) renew(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := l.cache.ExtendLock(ctx, l.key, l.token, l.ttl)
			cancel()
			// Lost to expiry or another holder; a transient error is retried next tick.
			if errors.Is(err, cache.ErrLockNotHeld) {
				return
			}
		}
	}
}

func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

var _ domrepo.RunLock = (*CacheRunLock)(nil)
