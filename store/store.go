package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
)

// ErrSessionNotFound is returned when a key has no stored session.
// Callers distinguish it from connectivity errors, which mean the
// request must fail instead of starting a fresh conversation.
var ErrSessionNotFound = errors.New("session not found")

// opTimeout bounds every store operation against a remote backend so a
// hung store cannot hold a request open indefinitely.
const opTimeout = 5 * time.Second

// SessionStore persists sessions. Get and List return point-in-time
// snapshots; mutating a returned session does not change stored state
// until Put.
type SessionStore interface {
	Get(ctx context.Context, key model.SessionKey) (*model.Session, error)
	Put(ctx context.Context, session *model.Session) error
	AppendMessage(ctx context.Context, key model.SessionKey, msg model.Message) (*model.Session, error)
	Reset(ctx context.Context, key model.SessionKey) error
	Delete(ctx context.Context, key model.SessionKey) error
	List(ctx context.Context, userID string) ([]*model.Session, error)
	ListAll(ctx context.Context) ([]*model.Session, error)
	Ping(ctx context.Context) error
	Close() error
}

// New builds the session store selected by the configuration. The
// returned store owns its connections; callers must Close it.
func New(cfg *config.Config) (SessionStore, error) {
	ttl := cfg.TTL()

	switch cfg.Storage.Type {
	case config.StorageMemory:
		return NewMemoryStore(ttl), nil
	case config.StorageRedis:
		return NewRedisStore(cfg.Storage.RedisURL, cfg.Storage.RedisDB, ttl)
	case config.StorageMongoDB:
		return NewMongoDBStore(MongoDBStoreConfig{
			URI:      cfg.Storage.MongoURI,
			Database: cfg.Storage.MongoDB,
			TTL:      ttl,
		})
	case config.StorageSQLite:
		return NewSQLiteStore(cfg.Storage.SQLitePath, ttl)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// withOpTimeout derives a bounded context for a single store operation.
func withOpTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// appendViaGetPut implements an atomic AppendMessage on top of Get and
// Put. The per-key lock serializes concurrent appends so the stored
// order reflects the serialization. A missing session is created.
func appendViaGetPut(ctx context.Context, s SessionStore, locks *model.KeyedLocks, key model.SessionKey, msg model.Message) (*model.Session, error) {
	lock := locks.Get(key.String())
	lock.Lock()
	defer lock.Unlock()

	session, err := s.Get(ctx, key)
	if errors.Is(err, ErrSessionNotFound) {
		session = model.NewSession(key.UserID, key.SessionID)
	} else if err != nil {
		return nil, err
	}

	session.Append(msg)
	if err := s.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// resetViaGetPut implements Reset on top of Get and Put: the history is
// cleared while the memory zone and metadata survive.
func resetViaGetPut(ctx context.Context, s SessionStore, locks *model.KeyedLocks, key model.SessionKey) error {
	lock := locks.Get(key.String())
	lock.Lock()
	defer lock.Unlock()

	session, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	session.Reset()
	return s.Put(ctx, session)
}
