package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	seq  uint64
	now  func() time.Time
}

type localEntry struct {
	id      uint64
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]localEntry{}, now: time.Now}
}

func (l *LocalLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if ttl <= 0 {
		return nil, false, fmt.Errorf("lease ttl must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, false, nil
	}
	l.seq++
	l.held[key] = localEntry{id: l.seq, expires: now.Add(ttl)}
	return &localLease{l: l, key: key, id: l.seq}, true, nil
}

type localLease struct {
	l   *LocalLocker
	key string
	id  uint64
}

func (r *localLease) Release(context.Context) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if e, ok := r.l.held[r.key]; ok && e.id == r.id {
		delete(r.l.held, r.key)
	}
	return nil
}
