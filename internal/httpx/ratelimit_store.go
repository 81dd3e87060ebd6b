package httpx

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Window is the state of one identity's counter after an increment.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// CounterStore keeps per-identity request counters for fixed windows.
// Increment must be atomic for a given key.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Window, error)
}

type counter struct {
	count   int64
	resetAt time.Time
}

// MemoryCounterStore keeps counters in process memory. A window starts with
// the first request of an identity; expired windows are reset lazily and
// removed by Sweep.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counter
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*counter)}
}

func (s *MemoryCounterStore) Increment(_ context.Context, key string, window time.Duration, now time.Time) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return Window{Count: c.count, ResetAt: c.resetAt}, nil
}

// Sweep drops the counters whose window ended before now.
func (s *MemoryCounterStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired counters every interval until ctx is done.
func (s *MemoryCounterStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// MongoCounterStore shares counters between instances through MongoDB.
// Windows are aligned to multiples of the window length; a TTL index on
// expiresAt removes finished windows.
type MongoCounterStore struct {
	coll *mongo.Collection
}

func NewMongoCounterStore(coll *mongo.Collection) *MongoCounterStore {
	return &MongoCounterStore{coll: coll}
}

// EnsureIndexes creates the TTL index that expires finished windows.
func (s *MongoCounterStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create rate limit ttl index: %w", err)
	}
	return nil
}

type counterDoc struct {
	ID        string    `bson:"_id"`
	Identity  string    `bson:"identity"`
	Count     int64     `bson:"count"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

func (s *MongoCounterStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Window, error) {
	start := now.UTC().Truncate(window)
	resetAt := start.Add(window)
	filter := bson.M{"_id": key + "|" + strconv.FormatInt(start.Unix(), 10)}
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"identity": key, "expiresAt": resetAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	// Two concurrent upserts of a new window can collide on _id; the loser
	// retries as a plain increment.
	if mongo.IsDuplicateKeyError(err) {
		err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return Window{}, fmt.Errorf("increment rate limit counter: %w", err)
	}
	return Window{Count: doc.Count, ResetAt: resetAt}, nil
}
