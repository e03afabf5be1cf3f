package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ghiac/modelrelay/log"
	"github.com/ghiac/modelrelay/model"
)

// SQLiteStore persists sessions in a SQLite database, one row per
// session with the full session serialized as JSON. TTL expiry runs as
// a periodic sweep because SQLite has no native key expiry.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	locks    *model.KeyedLocks
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSQLiteStore opens (or creates) the database at dbPath. An empty
// path selects ":memory:"; for file paths the parent directory is
// created when missing. Sessions expire ttl after their last write;
// ttl <= 0 disables expiry.
func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory for database: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		path:  dbPath,
		locks: model.NewKeyedLocks(),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if ttl > 0 {
		go s.sweep()
	}

	return s, nil
}

var _ SessionStore = (*SQLiteStore)(nil)

// initSchema creates the sessions table.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_key TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL, -- unix nanoseconds
		updated_at INTEGER NOT NULL  -- unix nanoseconds
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get retrieves a session by key. Expired sessions are evicted here
// instead of waiting for the next sweep.
func (s *SQLiteStore) Get(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var (
		data      string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM sessions WHERE session_key = ?`, key.String(),
	).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if s.ttl > 0 && updatedAt < time.Now().Add(-s.ttl).UnixNano() {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM sessions WHERE session_key = ?`, key.String()); err != nil {
			log.Log.Warnf("failed to evict expired session %s: %v", key, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}

	session := &model.Session{}
	if err := json.Unmarshal([]byte(data), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// Put stores or updates a session and refreshes its TTL clock.
func (s *SQLiteStore) Put(ctx context.Context, session *model.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (session_key, user_id, session_id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.Key().String(),
		session.UserID,
		session.SessionID,
		string(data),
		session.CreatedAt.UnixNano(),
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// AppendMessage atomically appends a message to a session, creating it
// first when absent. Concurrent appends on one key are serialized.
func (s *SQLiteStore) AppendMessage(ctx context.Context, key model.SessionKey, msg model.Message) (*model.Session, error) {
	return appendViaGetPut(ctx, s, s.locks, key, msg)
}

// Reset clears a session's history while keeping its memory zone.
func (s *SQLiteStore) Reset(ctx context.Context, key model.SessionKey) error {
	return resetViaGetPut(ctx, s, s.locks, key)
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key model.SessionKey) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_key = ?`, key.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns all sessions for a user.
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]*model.Session, error) {
	return s.query(ctx,
		`SELECT data FROM sessions WHERE user_id = ? ORDER BY updated_at DESC`, userID)
}

// ListAll returns every stored session.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*model.Session, error) {
	return s.query(ctx,
		`SELECT data FROM sessions ORDER BY updated_at DESC`)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*model.Session, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		session := &model.Session{}
		if err := json.Unmarshal([]byte(data), session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Ping verifies the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close stops the sweeper and closes the database.
func (s *SQLiteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.db.Close()
}

func (s *SQLiteStore) sweep() {
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

// removeExpired deletes sessions whose last write is older than the
// TTL, logging one session_expired event per eviction.
func (s *SQLiteStore) removeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	cutoff := time.Now().Add(-s.ttl)

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_key, updated_at FROM sessions WHERE updated_at < ?`, cutoff.UnixNano())
	if err != nil {
		log.Log.Warnf("session sweep query failed: %v", err)
		return
	}

	type expired struct {
		key       string
		updatedAt int64
	}
	var victims []expired
	for rows.Next() {
		var v expired
		if err := rows.Scan(&v.key, &v.updatedAt); err != nil {
			rows.Close()
			log.Log.Warnf("session sweep scan failed: %v", err)
			return
		}
		victims = append(victims, v)
	}
	rows.Close()

	for _, v := range victims {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM sessions WHERE session_key = ?`, v.key); err != nil {
			log.Log.Warnf("session sweep delete failed: %v", err)
			continue
		}
		log.Log.SessionExpired(v.key, time.Since(time.Unix(0, v.updatedAt)))
	}
}
