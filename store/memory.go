package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghiac/modelrelay/log"
	"github.com/ghiac/modelrelay/model"
)

// sweepInterval is how often the memory store scans for expired
// sessions. Expiry is also checked lazily on every Get.
const sweepInterval = time.Minute

// MemoryStore is an in-memory implementation of SessionStore with TTL
// expiry. Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[model.SessionKey]*memoryEntry
	locks    *model.KeyedLocks
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	session   *model.Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory session store. Sessions expire
// ttl after their last write; ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[model.SessionKey]*memoryEntry),
		locks:    model.NewKeyedLocks(),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

var _ SessionStore = (*MemoryStore)(nil)

// Get retrieves a session snapshot by key.
func (s *MemoryStore) Get(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.sessions[key]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	if s.expired(entry) {
		s.mu.Lock()
		delete(s.sessions, key)
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}

	return entry.session.Clone(), nil
}

// Put stores or updates a session and refreshes its TTL.
func (s *MemoryStore) Put(ctx context.Context, session *model.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Key()] = &memoryEntry{
		session:   session.Clone(),
		expiresAt: s.deadline(),
	}
	return nil
}

// AppendMessage atomically appends a message to a session, creating it
// first when absent. Concurrent appends on one key are serialized.
func (s *MemoryStore) AppendMessage(ctx context.Context, key model.SessionKey, msg model.Message) (*model.Session, error) {
	return appendViaGetPut(ctx, s, s.locks, key, msg)
}

// Reset clears a session's history while keeping its memory zone.
func (s *MemoryStore) Reset(ctx context.Context, key model.SessionKey) error {
	return resetViaGetPut(ctx, s, s.locks, key)
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key model.SessionKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
	return nil
}

// List returns snapshots of all live sessions for a user.
func (s *MemoryStore) List(ctx context.Context, userID string) ([]*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*model.Session
	for _, entry := range s.sessions {
		if entry.session.UserID == userID && !s.expired(entry) {
			sessions = append(sessions, entry.session.Clone())
		}
	}
	return sessions, nil
}

// ListAll returns snapshots of every live session.
func (s *MemoryStore) ListAll(ctx context.Context) ([]*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, entry := range s.sessions {
		if !s.expired(entry) {
			sessions = append(sessions, entry.session.Clone())
		}
	}
	return sessions, nil
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close stops the expiry sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Len reports the number of stored sessions, expired ones included
// until the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) deadline() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.ttl)
}

func (s *MemoryStore) expired(entry *memoryEntry) bool {
	return !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.sessions {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.sessions, key)
			log.Log.SessionExpired(key.String(), now.Sub(entry.session.UpdatedAt))
		}
	}
}
