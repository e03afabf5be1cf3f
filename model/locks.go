package model

import "sync"

// KeyedLocks hands out one mutex per key so callers can serialize work
// on a single session without blocking the rest.
type KeyedLocks struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// NewKeyedLocks creates an empty lock table.
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for key, creating it on first use.
func (k *KeyedLocks) Get(key string) *sync.Mutex {
	k.mu.RLock()
	lock, exists := k.locks[key]
	k.mu.RUnlock()

	if exists {
		return lock
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// Double check after acquiring write lock
	if lock, exists := k.locks[key]; exists {
		return lock
	}

	lock = &sync.Mutex{}
	k.locks[key] = lock
	return lock
}

// Len reports how many keys have locks. Used by diagnostics.
func (k *KeyedLocks) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.locks)
}
