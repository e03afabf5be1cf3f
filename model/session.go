package model

import (
	"time"
)

// SessionKey identifies one conversation within the session store.
type SessionKey struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// String renders the key as "userID:sessionID", the canonical form used
// in log fields and store key construction.
func (k SessionKey) String() string {
	return k.UserID + ":" + k.SessionID
}

// MemoryZone holds summary texts that survive context reduction.
// Entries are appended when a summarization pass runs and are cleared
// only by explicit administrative action; a session reset leaves the
// zone intact.
type MemoryZone []string

// Clone returns an independent copy.
func (z MemoryZone) Clone() MemoryZone {
	if z == nil {
		return nil
	}
	out := make(MemoryZone, len(z))
	copy(out, z)
	return out
}

// Session is one conversation: the transcript plus the memory zone and
// bookkeeping timestamps.
type Session struct {
	SessionID       string            `json:"session_id"`
	UserID          string            `json:"user_id"`
	History         History           `json:"history"`
	MemoryZone      MemoryZone        `json:"memory_zone"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	TotalTokensUsed int               `json:"total_tokens_used"`
}

// NewSession creates an empty session for the given identifiers.
func NewSession(userID, sessionID string) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:  sessionID,
		UserID:     userID,
		History:    History{},
		MemoryZone: MemoryZone{},
		Metadata:   make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Key returns the store key for this session.
func (s *Session) Key() SessionKey {
	return SessionKey{UserID: s.UserID, SessionID: s.SessionID}
}

// Append adds messages to the transcript and advances UpdatedAt.
func (s *Session) Append(msgs ...Message) {
	s.History = append(s.History, msgs...)
	s.UpdatedAt = time.Now().UTC()
}

// ReplaceHistory swaps in a reduced or client-supplied transcript.
func (s *Session) ReplaceHistory(h History) {
	s.History = h
	s.UpdatedAt = time.Now().UTC()
}

// AddMemory appends a summary to the memory zone.
func (s *Session) AddMemory(summary string) {
	s.MemoryZone = append(s.MemoryZone, summary)
	s.UpdatedAt = time.Now().UTC()
}

// Reset clears the transcript. The memory zone and metadata survive so
// a reset conversation keeps its long-term context.
func (s *Session) Reset() {
	s.History = History{}
	s.UpdatedAt = time.Now().UTC()
}

// ClearMemory empties the memory zone.
func (s *Session) ClearMemory() {
	s.MemoryZone = MemoryZone{}
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so store reads hand out point-in-time
// snapshots instead of aliasing live state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = s.History.Clone()
	out.MemoryZone = s.MemoryZone.Clone()
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
