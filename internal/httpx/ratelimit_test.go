package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration, time.Time) (Window, error) {
	return Window{}, errors.New("store unavailable")
}

func newFakeClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := RateLimitFrom(r); !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		JSONSuccess(w, http.StatusOK, "ok", WithRateLimit(r))
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock, now := newFakeClock(start)
	rl := NewRateLimiter(NewMemoryCounterStore(), 3, time.Minute)
	rl.now = now
	handler := rl.Middleware(okHandler())

	request := func(remoteAddr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
		r.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	for i := 1; i <= 3; i++ {
		w := request("10.0.0.1:5000")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(3-i), w.Header().Get("RateLimit-Remaining"))
		assert.Equal(t, "60", w.Header().Get("RateLimit-Reset"))
	}

	t.Run("rejects over the limit", func(t *testing.T) {
		w := request("10.0.0.1:5001")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, float64(429), body["code"])
		assert.Equal(t, msgTooManyRequests, body["message"])
		assert.Equal(t, float64(0), body["remaining"])
	})

	t.Run("other clients are unaffected", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, request("10.0.0.2:5000").Code)
	})

	t.Run("counter resets after the window", func(t *testing.T) {
		*clock = start.Add(time.Minute)
		w := request("10.0.0.1:5000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("RateLimit-Remaining"))
	})
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl := NewRateLimiter(failingStore{}, 1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(NewMemoryCounterStore(), 0, 0)

	assert.Equal(t, DefaultRateLimit, rl.limit)
	assert.Equal(t, DefaultRateLimitWindow, rl.window)
}

func TestRateLimiter_HundredPerWindow(t *testing.T) {
	rl := NewRateLimiter(NewMemoryCounterStore(), DefaultRateLimit, DefaultRateLimitWindow)
	ctx := context.Background()

	for i := 0; i < DefaultRateLimit; i++ {
		d, err := rl.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := rl.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestMemoryCounterStore_Sweep(t *testing.T) {
	s := NewMemoryCounterStore()
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Increment(ctx, "a", time.Minute, start)
	require.NoError(t, err)
	_, err = s.Increment(ctx, "b", time.Minute, start.Add(30*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Sweep(start.Add(time.Minute)))
	assert.Equal(t, 1, s.Sweep(start.Add(2*time.Minute)))
	assert.Equal(t, 0, s.Sweep(start.Add(3*time.Minute)))
}

func TestMongoCounterStore_Increment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}
	now := time.Date(2024, 5, 1, 10, 7, 30, 0, time.UTC)
	resetAt := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	counterDocument := func(count int64) bson.D {
		return bson.D{
			{Key: "_id", Value: "198.51.100.4|1714557600"},
			{Key: "identity", Value: "198.51.100.4"},
			{Key: "count", Value: count},
			{Key: "expiresAt", Value: resetAt},
		}
	}

	mt.Run("aligned window", func(mt *mtest.T) {
		s := NewMongoCounterStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: counterDocument(4)}))

		w, err := s.Increment(context.Background(), "198.51.100.4", 15*time.Minute, now)

		require.NoError(mt, err)
		assert.Equal(mt, int64(4), w.Count)
		assert.Equal(mt, resetAt, w.ResetAt)
	})

	mt.Run("retries a racing upsert", func(mt *mtest.T) {
		s := NewMongoCounterStore(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Name: "DuplicateKey", Message: "E11000 duplicate key error"}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: counterDocument(2)}),
		)

		w, err := s.Increment(context.Background(), "198.51.100.4", 15*time.Minute, now)

		require.NoError(mt, err)
		assert.Equal(mt, int64(2), w.Count)
	})

	mt.Run("store error", func(mt *mtest.T) {
		s := NewMongoCounterStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}))

		_, err := s.Increment(context.Background(), "198.51.100.4", 15*time.Minute, now)

		assert.Error(mt, err)
	})
}
