package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"librarycatalog/internal/book"
	"librarycatalog/internal/httpx"
)

const (
	welcomeMessage  = "Welcome to Maxim Library Management API"
	notFoundMessage = "This endpoint does not exist!"
	readyTimeout    = 500 * time.Millisecond
)

// Deps holds what the router needs from the rest of the application.
type Deps struct {
	Books   *book.HTTPHandler
	Limiter *httpx.RateLimiter
	// Ready reports whether the book store is reachable.
	Ready func(ctx context.Context) error

	TrustProxy   bool
	CORSOrigins  []string
	EnableHSTS   bool
	MaxBodyBytes int64
}

// NewRouter builds the HTTP handler of the catalog service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(httpx.RequestIDMiddleware)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(httpx.AccessLogMiddleware)
	r.Use(httpx.RecoveryMiddleware)
	r.Use(httpx.SecurityHeadersMiddleware(d.EnableHSTS))
	r.Use(httpx.CORSMiddleware(d.CORSOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(httpx.RequestSizeLimitMiddleware(d.MaxBodyBytes))
	}
	withNotFound(r)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONMessage(w, http.StatusOK, welcomeMessage)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if d.Ready != nil {
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "store not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Limiter.Middleware)
		withNotFound(r)

		r.Route("/v1/books", func(r chi.Router) {
			withNotFound(r)
			r.Post("/", d.Books.Add)
			r.Get("/", d.Books.List)
			// Update and delete without an id report the missing id.
			r.Put("/", d.Books.Update)
			r.Delete("/", d.Books.Delete)

			r.Get("/{id}", d.Books.Get)
			r.Put("/{id}", d.Books.Update)
			r.Delete("/{id}", d.Books.Delete)
		})
	})

	return r
}

// withNotFound answers unknown paths and unsupported methods alike.
func withNotFound(r chi.Router) {
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httpx.JSONMessage(w, http.StatusNotFound, notFoundMessage)
}
