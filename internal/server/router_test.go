package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarycatalog/internal/book"
	"librarycatalog/internal/httpx"
	"librarycatalog/internal/testutil"
)

func newTestRouter(t *testing.T, limit int) http.Handler {
	t.Helper()
	repo := book.NewMemoryRepo()
	return NewRouter(Deps{
		Books:        book.NewHTTPHandler(book.NewService(repo), 0),
		Limiter:      httpx.NewRateLimiter(httpx.NewMemoryCounterStore(), limit, time.Minute),
		Ready:        repo.Ping,
		MaxBodyBytes: 1 << 20,
	})
}

func TestRouter_BookLifecycle(t *testing.T) {
	router := newTestRouter(t, 100)

	created := testutil.Do(router, testutil.NewRequest(http.MethodPost, "/api/v1/books", testutil.BookPayload("Parable of the Sower")))
	require.Equal(t, http.StatusCreated, created.Code)
	assert.Equal(t, "Book added successfully", created.Body["message"])
	id, _ := created.Data()["id"].(string)
	require.True(t, strings.HasPrefix(id, "BOOK-"), "id %q", id)

	t.Run("duplicate title", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodPost, "/api/v1/books", testutil.BookPayload("Parable of the Sower")))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Book already exist", resp.Body["message"])
	})

	t.Run("get by id", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodGet, "/api/v1/books/"+id, nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		data := resp.Data()
		assert.Equal(t, "Parable of the Sower", data["title"])
		assert.Equal(t, "Octavia E. Butler", data["author"])
		assert.Equal(t, "Science Fiction", data["genre"])
		assert.Equal(t, "1993-10-01T00:00:00Z", data["publicationDate"])
		assert.Equal(t, "First Edition", data["edition"])
		assert.Equal(t, "Lauren Olamina and Earthseed.", data["summary"])
		assert.Equal(t, "available", data["availability"])
		assert.NotNil(t, resp.Body["headers"])
	})

	t.Run("search", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodGet, "/api/v1/books?author=butler", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(1), resp.Body["count"])
		assert.Equal(t, map[string]any{"pageNumber": float64(1), "pageSize": float64(5), "skip": float64(0)}, resp.Body["pagination"])
	})

	t.Run("page beyond any result", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodGet, "/api/v1/books?author=butler&page=4611686018427387905&limit=2", nil))
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "No books found", resp.Body["message"])
	})

	t.Run("partial update", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodPut, "/api/v1/books/"+id, `{"availability":"borrowed","title":""}`))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "borrowed", resp.Data()["availability"])
		assert.Equal(t, "Parable of the Sower", resp.Data()["title"])
	})

	t.Run("delete", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodDelete, "/api/v1/books/"+id, nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Book deleted successfully", resp.Body["message"])

		resp = testutil.Do(router, testutil.NewRequest(http.MethodGet, "/api/v1/books/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "Book not found", resp.Body["message"])
	})
}

func TestRouter_Errors(t *testing.T) {
	router := newTestRouter(t, 100)

	tests := []struct {
		name    string
		method  string
		path    string
		body    interface{}
		code    int
		message string
	}{
		{"search without query", http.MethodGet, "/api/v1/books", nil, http.StatusBadRequest, "Please provide at least one search query"},
		{"search without matches", http.MethodGet, "/api/v1/books?title=nothing", nil, http.StatusNotFound, "No books found"},
		{"unknown id", http.MethodGet, "/api/v1/books/BOOK-missing", nil, http.StatusNotFound, "Book not found"},
		{"delete without id", http.MethodDelete, "/api/v1/books/", nil, http.StatusBadRequest, "Please provide a book ID"},
		{"update without id", http.MethodPut, "/api/v1/books/", `{"title":"x"}`, http.StatusBadRequest, "Please provide a book ID"},
		{"missing fields", http.MethodPost, "/api/v1/books", `{"title":"Kindred"}`, http.StatusBadRequest, "All fields are required"},
		{"malformed json", http.MethodPost, "/api/v1/books", `{"title":`, http.StatusBadRequest, "Invalid input data. Please check your request."},
		{"unknown endpoint", http.MethodGet, "/api/v2/books", nil, http.StatusNotFound, "This endpoint does not exist!"},
		{"unsupported method", http.MethodPatch, "/api/v1/books/BOOK-1", nil, http.StatusNotFound, "This endpoint does not exist!"},
		{"outside api", http.MethodGet, "/nowhere", nil, http.StatusNotFound, "This endpoint does not exist!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.Do(router, testutil.NewRequest(tt.method, tt.path, tt.body))
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.message, resp.Body["message"])
		})
	}
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router := newTestRouter(t, 100)
	body := `{"title":"` + strings.Repeat("a", 2<<20) + `"}`

	t.Run("declared length", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodPost, "/api/v1/books", body))
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
		assert.Equal(t, "Request body too large", resp.Body["message"])
	})

	t.Run("unknown length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/books", io.MultiReader(strings.NewReader(body)))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, int64(-1), req.ContentLength)

		resp := testutil.Do(router, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
		assert.Equal(t, "Request body too large", resp.Body["message"])
	})
}

func TestRouter_RateLimit(t *testing.T) {
	router := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodGet, "/api/v1/books?title=a", nil))
		require.Equal(t, http.StatusNotFound, resp.Code)
	}

	resp := testutil.Do(router, testutil.NewRequest(http.MethodGet, "/api/v1/books?title=a", nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "Too many requests, please try again later", resp.Body["message"])
	assert.Equal(t, "0", resp.Header.Get("RateLimit-Remaining"))

	t.Run("routes outside the api are not limited", func(t *testing.T) {
		resp := testutil.Do(router, testutil.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Welcome to Maxim Library Management API", resp.Body["message"])
	})
}

func TestRouter_Readiness(t *testing.T) {
	router := NewRouter(Deps{
		Books:   book.NewHTTPHandler(book.NewService(book.NewMemoryRepo()), 0),
		Limiter: httpx.NewRateLimiter(httpx.NewMemoryCounterStore(), 10, time.Minute),
		Ready:   func(context.Context) error { return errors.New("down") },
	})

	assert.Equal(t, http.StatusOK, testutil.Do(router, testutil.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, testutil.Do(router, testutil.NewRequest(http.MethodGet, "/readyz", nil)).Code)
}
