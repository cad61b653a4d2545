package cache

import (
	"context"
	"sync"
	"time"
)

// ScoreKey builds the cache key for one (meeting, model) scoring result
func ScoreKey(meetingID, model string) string {
	return "score:" + meetingID + ":" + model
}

// MemoryStore is an in-process score cache with optional expiration
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*memoryItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type memoryItem struct {
	value      []byte
	expireTime time.Time // zero means no expiry
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expireTime.IsZero() && now.After(i.expireTime)
}

// NewMemoryStore creates a new in-memory store and starts its sweeper
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		items: make(map[string]*memoryItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	go store.cleanupExpired(5 * time.Minute)

	return store
}

// Get returns the payload stored for (meetingID, model)
func (ms *MemoryStore) Get(_ context.Context, meetingID, model string) ([]byte, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	item, exists := ms.items[ScoreKey(meetingID, model)]
	if !exists || item.expired(ms.now()) {
		return nil, false, nil
	}
	return item.value, true, nil
}

// PutIfAbsent stores payload unless a live entry exists. A ttl of zero
// keeps the entry for the life of the process.
func (ms *MemoryStore) PutIfAbsent(_ context.Context, meetingID, model string, payload []byte, ttl time.Duration) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := ScoreKey(meetingID, model)
	now := ms.now()
	if item, exists := ms.items[key]; exists && !item.expired(now) {
		return false, nil
	}

	item := &memoryItem{value: append([]byte(nil), payload...)}
	if ttl > 0 {
		item.expireTime = now.Add(ttl)
	}
	ms.items[key] = item
	return true, nil
}

// Len reports the number of stored entries, expired ones included
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}

// Close stops the sweeper
func (ms *MemoryStore) Close() error {
	ms.once.Do(func() { close(ms.stop) })
	return nil
}

// cleanupExpired periodically removes expired items
func (ms *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.stop:
			return
		case <-ticker.C:
			ms.sweep()
		}
	}
}

func (ms *MemoryStore) sweep() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, item := range ms.items {
		if item.expired(now) {
			delete(ms.items, key)
		}
	}
}
