package model

import (
	"sync"
	"testing"
)

func TestNewSession(t *testing.T) {
	s := NewSession("alice", "session_42")

	if s.UserID != "alice" || s.SessionID != "session_42" {
		t.Errorf("unexpected identifiers: %q / %q", s.UserID, s.SessionID)
	}
	if s.History == nil || len(s.History) != 0 {
		t.Error("new session should start with an empty history")
	}
	if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on creation")
	}
	if got := s.Key().String(); got != "alice:session_42" {
		t.Errorf("Key().String() = %q, want %q", got, "alice:session_42")
	}
}

func TestSessionResetKeepsMemoryZone(t *testing.T) {
	s := NewSession("bob", "session_1")
	s.Append(NewMessage(RoleUser, "hi"), NewMessage(RoleAssistant, "hello"))
	s.AddMemory("talked about greetings")

	s.Reset()

	if len(s.History) != 0 {
		t.Errorf("Reset left %d messages in history", len(s.History))
	}
	if len(s.MemoryZone) != 1 || s.MemoryZone[0] != "talked about greetings" {
		t.Error("Reset should not touch the memory zone")
	}

	s.ClearMemory()
	if len(s.MemoryZone) != 0 {
		t.Error("ClearMemory should empty the memory zone")
	}
}

func TestSessionClone(t *testing.T) {
	s := NewSession("carol", "session_7")
	s.Append(NewMessage(RoleUser, "original"))
	s.Metadata["source"] = "test"

	clone := s.Clone()
	clone.Append(NewMessage(RoleAssistant, "added to clone"))
	clone.Metadata["source"] = "clone"
	clone.AddMemory("clone only")

	if len(s.History) != 1 {
		t.Errorf("mutating clone changed original history, len = %d", len(s.History))
	}
	if s.Metadata["source"] != "test" {
		t.Error("mutating clone changed original metadata")
	}
	if len(s.MemoryZone) != 0 {
		t.Error("mutating clone changed original memory zone")
	}
}

func TestKeyedLocksSameKeySameMutex(t *testing.T) {
	locks := NewKeyedLocks()

	a := locks.Get("alice:session_1")
	b := locks.Get("alice:session_1")
	c := locks.Get("bob:session_1")

	if a != b {
		t.Error("same key should return the same mutex")
	}
	if a == c {
		t.Error("different keys should return different mutexes")
	}
	if locks.Len() != 2 {
		t.Errorf("Len() = %d, want 2", locks.Len())
	}
}

func TestKeyedLocksConcurrentAccess(t *testing.T) {
	locks := NewKeyedLocks()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu := locks.Get("shared")
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if locks.Len() != 1 {
		t.Errorf("concurrent Get created %d locks, want 1", locks.Len())
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	err := NewModelNotFoundError("ghost/x")

	if err.Status != 400 {
		t.Errorf("status = %d, want 400", err.Status)
	}
	if err.Type != ErrTypeInvalidRequest {
		t.Errorf("type = %q, want %q", err.Type, ErrTypeInvalidRequest)
	}
	if err.Code != ErrCodeModelNotFound {
		t.Errorf("code = %q, want %q", err.Code, ErrCodeModelNotFound)
	}

	env := err.Envelope()
	if env.Error != err {
		t.Error("Envelope should wrap the same error value")
	}
}

func TestAsAPIErrorPassthrough(t *testing.T) {
	orig := NewUpstreamTimeoutError("openai")
	if got := AsAPIError(orig); got != orig {
		t.Error("AsAPIError should return an APIError unchanged")
	}

	wrapped := AsAPIError(errDummy("boom"))
	if wrapped.Type != ErrTypeAPI || wrapped.Code != ErrCodeInternalError {
		t.Errorf("unknown errors should map to internal: %+v", wrapped)
	}
	if wrapped.Status != 500 {
		t.Errorf("internal error status = %d, want 500", wrapped.Status)
	}
}

type errDummy string

func (e errDummy) Error() string { return string(e) }
