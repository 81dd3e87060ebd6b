package httpx

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultRateLimit       = 100
	DefaultRateLimitWindow = 15 * time.Minute

	msgTooManyRequests = "Too many requests, please try again later"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Info converts the decision into the metadata echoed to clients.
func (d Decision) Info() RateLimitInfo {
	return RateLimitInfo{
		Limit:     d.Limit,
		Remaining: d.Remaining,
		Reset:     d.ResetAt.UTC().Format(time.RFC3339Nano),
	}
}

// RateLimiter admits at most limit requests per identity in each fixed window.
type RateLimiter struct {
	store  CounterStore
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(store CounterStore, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &RateLimiter{store: store, limit: limit, window: window, now: time.Now}
}

// Allow counts one request for key and reports whether it is admitted.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	w, err := rl.store.Increment(ctx, key, rl.window, rl.now())
	if err != nil {
		return Decision{}, err
	}
	remaining := int64(rl.limit) - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.Count <= int64(rl.limit),
		Limit:     rl.limit,
		Remaining: int(remaining),
		ResetAt:   w.ResetAt,
	}, nil
}

type tooManyRequestsResponse struct {
	Status    string `json:"status"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reset     string `json:"reset"`
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIdentity(r)

		d, err := rl.Allow(r.Context(), key)
		if err != nil {
			// Fail open while the counter store is unavailable.
			slog.ErrorContext(r.Context(), "rate limit check failed", "identity", key, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		resetSeconds := int(math.Ceil(d.ResetAt.Sub(rl.now()).Seconds()))
		if resetSeconds < 0 {
			resetSeconds = 0
		}
		w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("RateLimit-Reset", strconv.Itoa(resetSeconds))

		info := d.Info()
		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(resetSeconds))
			JSON(w, http.StatusTooManyRequests, tooManyRequestsResponse{
				Status:    StatusError,
				Code:      http.StatusTooManyRequests,
				Message:   msgTooManyRequests,
				Limit:     info.Limit,
				Remaining: info.Remaining,
				Reset:     info.Reset,
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithRateLimit(r.Context(), info)))
	})
}

// ClientIdentity is the host part of the request's remote address. Proxy
// headers are only honoured when a RealIP middleware rewrote RemoteAddr first.
func ClientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
