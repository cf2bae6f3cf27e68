package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// exclusiveWeight is the full capacity of a key. A writer takes all of it,
// a reader takes one unit.
const exclusiveWeight = 1 << 20

// KeyedMutex hands out one reader/writer lock per key. Entries exist only
// while someone holds or waits on them. Acquisition honours context
// cancellation so a stuck key cannot pin the scheduler. Waiters are served in
// order, so a waiting writer holds back readers that arrive after it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is held by nobody else or ctx is done. The returned
// func releases the lock.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	return m.acquire(ctx, key, exclusiveWeight)
}

// RLock takes a shared hold on key. Shared holders only exclude Lock.
func (m *KeyedMutex) RLock(ctx context.Context, key string) (func(), error) {
	return m.acquire(ctx, key, 1)
}

func (m *KeyedMutex) acquire(ctx context.Context, key string, weight int64) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{sem: semaphore.NewWeighted(exclusiveWeight)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	if err := l.sem.Acquire(ctx, weight); err != nil {
		m.release(key, l)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(weight)
			m.release(key, l)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, l *keyedLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Len reports how many keys currently have holders or waiters.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
