package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghiac/modelrelay/model"
)

// RedisStore keeps sessions in Redis with native key TTL. Expiry is
// handled entirely by Redis; every write refreshes the TTL.
type RedisStore struct {
	client *redis.Client
	locks  *model.KeyedLocks
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection. The URL
// uses the standard redis:// scheme; db overrides the URL database when
// non-zero.
func NewRedisStore(url string, db int, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if db != 0 {
		opts.DB = db
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, locks: model.NewKeyedLocks(), ttl: ttl}, nil
}

var _ SessionStore = (*RedisStore)(nil)

// redisSessionKey builds the storage key for a session.
func redisSessionKey(key model.SessionKey) string {
	return fmt.Sprintf("session:%s:%s", key.UserID, key.SessionID)
}

// Get retrieves a session by key.
func (s *RedisStore) Get(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	data, err := s.client.Get(ctx, redisSessionKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	session := &model.Session{}
	if err := json.Unmarshal([]byte(data), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// Put stores a session and refreshes its TTL.
func (s *RedisStore) Put(ctx context.Context, session *model.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if err := s.client.Set(ctx, redisSessionKey(session.Key()), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session to redis: %w", err)
	}
	return nil
}

// AppendMessage atomically appends a message to a session, creating it
// first when absent. Appends on one key are serialized in-process; the
// write refreshes the key TTL.
func (s *RedisStore) AppendMessage(ctx context.Context, key model.SessionKey, msg model.Message) (*model.Session, error) {
	return appendViaGetPut(ctx, s, s.locks, key, msg)
}

// Reset clears a session's history while keeping its memory zone.
func (s *RedisStore) Reset(ctx context.Context, key model.SessionKey) error {
	return resetViaGetPut(ctx, s, s.locks, key)
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, key model.SessionKey) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if err := s.client.Del(ctx, redisSessionKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// List returns all sessions for a user by scanning the key namespace.
func (s *RedisStore) List(ctx context.Context, userID string) ([]*model.Session, error) {
	return s.scan(ctx, fmt.Sprintf("session:%s:*", userID))
}

// ListAll returns every stored session.
func (s *RedisStore) ListAll(ctx context.Context) ([]*model.Session, error) {
	return s.scan(ctx, "session:*")
}

func (s *RedisStore) scan(ctx context.Context, pattern string) ([]*model.Session, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var sessions []*model.Session
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			// Key expired between scan and read.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read session from redis: %w", err)
		}

		session := &model.Session{}
		if err := json.Unmarshal([]byte(data), session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return sessions, nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close releases the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
