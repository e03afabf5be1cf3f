package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ghiac/modelrelay/model"
)

// MongoDBStore persists sessions in a MongoDB collection, one document
// per session with the session serialized as JSON in the data field.
// TTL expiry is delegated to a MongoDB TTL index on updated_at.
type MongoDBStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	locks      *model.KeyedLocks
}

// MongoDBStoreConfig holds configuration for MongoDBStore.
type MongoDBStoreConfig struct {
	URI        string        // connection URI (e.g. "mongodb://localhost:27017")
	Database   string        // database name (default: "modelrelay")
	Collection string        // collection name (default: "sessions")
	TTL        time.Duration // session lifetime from last write
}

// DefaultMongoDBStoreConfig returns the default configuration.
func DefaultMongoDBStoreConfig() MongoDBStoreConfig {
	return MongoDBStoreConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "modelrelay",
		Collection: "sessions",
		TTL:        time.Hour,
	}
}

// NewMongoDBStore connects to MongoDB, verifies the connection and
// ensures the indexes exist.
func NewMongoDBStore(config MongoDBStoreConfig) (*MongoDBStore, error) {
	if config.URI == "" {
		config.URI = "mongodb://localhost:27017"
	}
	if config.Database == "" {
		config.Database = "modelrelay"
	}
	if config.Collection == "" {
		config.Collection = "sessions"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoDBStore{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		locks:      model.NewKeyedLocks(),
	}

	if err := s.initIndexes(ctx, config.TTL); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return s, nil
}

var _ SessionStore = (*MongoDBStore)(nil)

// initIndexes creates the user index plus the TTL index that lets
// MongoDB itself evict sessions ttl after their last write.
func (s *MongoDBStore) initIndexes(ctx context.Context, ttl time.Duration) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create user_id index: %w", err)
	}

	if ttl > 0 {
		_, err = s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
		})
		if err != nil {
			return fmt.Errorf("failed to create TTL index: %w", err)
		}
	}

	return nil
}

// sessionDocument is the MongoDB representation of a session.
type sessionDocument struct {
	Key       string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Data      string    `bson:"data"` // JSON serialized Session
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Get retrieves a session by key.
func (s *MongoDBStore) Get(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var doc sessionDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return decodeSessionDocument(&doc)
}

// Put stores or updates a session. Writing refreshes updated_at, which
// restarts the TTL clock on the server side.
func (s *MongoDBStore) Put(ctx context.Context, session *model.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	doc := sessionDocument{
		Key:       session.Key().String(),
		UserID:    session.UserID,
		Data:      string(data),
		CreatedAt: session.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err = s.collection.ReplaceOne(ctx,
		bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// AppendMessage atomically appends a message to a session, creating it
// first when absent. Concurrent appends on one key are serialized.
func (s *MongoDBStore) AppendMessage(ctx context.Context, key model.SessionKey, msg model.Message) (*model.Session, error) {
	return appendViaGetPut(ctx, s, s.locks, key, msg)
}

// Reset clears a session's history while keeping its memory zone.
func (s *MongoDBStore) Reset(ctx context.Context, key model.SessionKey) error {
	return resetViaGetPut(ctx, s, s.locks, key)
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *MongoDBStore) Delete(ctx context.Context, key model.SessionKey) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key.String()})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns all sessions for a user.
func (s *MongoDBStore) List(ctx context.Context, userID string) ([]*model.Session, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

// ListAll returns every stored session.
func (s *MongoDBStore) ListAll(ctx context.Context) ([]*model.Session, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoDBStore) find(ctx context.Context, filter bson.M) ([]*model.Session, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	cursor, err := s.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	for cursor.Next(ctx) {
		var doc sessionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode session document: %w", err)
		}
		session, err := decodeSessionDocument(&doc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, cursor.Err()
}

// Ping verifies the MongoDB connection.
func (s *MongoDBStore) Ping(ctx context.Context) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (s *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func decodeSessionDocument(doc *sessionDocument) (*model.Session, error) {
	session := &model.Session{}
	if err := json.Unmarshal([]byte(doc.Data), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}
