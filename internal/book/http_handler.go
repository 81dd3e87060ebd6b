package book

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"librarycatalog/internal/httpx"
)

type HTTPHandler struct {
	service     *Service
	maxPageSize int
}

// NewHTTPHandler creates the book handlers. A maxPageSize above zero caps the
// limit query parameter.
func NewHTTPHandler(service *Service, maxPageSize int) *HTTPHandler {
	return &HTTPHandler{service: service, maxPageSize: maxPageSize}
}

// Add handles POST /api/v1/books
// @Summary Add a book
// @Tags books
// @Accept json
// @Produce json
// @Success 201 {object} httpx.Response
// @Failure 400 {object} httpx.Response
// @Failure 500 {object} httpx.Response
// @Router /api/v1/books [post]
func (h *HTTPHandler) Add(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	b, err := h.service.AddBook(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, http.StatusCreated, "Book added successfully", httpx.WithData(b))
}

// List handles GET /api/v1/books
// @Summary Search books
// @Tags books
// @Produce json
// @Param title query string false "Title contains (case-insensitive)"
// @Param author query string false "Author contains (case-insensitive)"
// @Param genre query string false "Genre contains (case-insensitive)"
// @Param publicationDate query string false "Exact publication date (YYYY-MM-DD)"
// @Param startDate query string false "Earliest publication date"
// @Param endDate query string false "Latest publication date"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(5)
// @Success 200 {object} httpx.Response
// @Failure 400 {object} httpx.Response
// @Failure 404 {object} httpx.Response
// @Router /api/v1/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	in := FilterInput{
		Title:           query.Get("title"),
		Author:          query.Get("author"),
		Genre:           query.Get("genre"),
		PublicationDate: query.Get("publicationDate"),
		StartDate:       query.Get("startDate"),
		EndDate:         query.Get("endDate"),
	}
	page := Paginate(query.Get("page"), query.Get("limit"), h.maxPageSize)

	res, err := h.service.ListBooks(r.Context(), in, page)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, "Books retrieved successfully.",
		httpx.WithCount(res.Count),
		httpx.WithData(res.Books),
		httpx.WithPagination(res.Pagination),
		httpx.WithRateLimit(r),
	)
}

// Get handles GET /api/v1/books/{id}
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.Response
// @Failure 404 {object} httpx.Response
// @Router /api/v1/books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBookByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, "Book details retrieved successfully.",
		httpx.WithData(b),
		httpx.WithRateLimit(r),
	)
}

// Update handles PUT /api/v1/books/{id}
// @Summary Partially update a book
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.Response
// @Failure 400 {object} httpx.Response
// @Failure 404 {object} httpx.Response
// @Router /api/v1/books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, newError(KindMissingID, msgMissingID))
		return
	}

	var in UpdateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	b, err := h.service.UpdateBook(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, "Book updated successfully", httpx.WithData(b))
}

// Delete handles DELETE /api/v1/books/{id}
// @Summary Delete a book
// @Tags books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.Response
// @Failure 400 {object} httpx.Response
// @Failure 404 {object} httpx.Response
// @Router /api/v1/books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, "Book deleted successfully")
}

// decodeBody treats an empty body as an empty payload so that missing fields
// are reported by validation rather than as malformed JSON. A body cut off by
// the size limit is reported as too large.
func decodeBody(r *http.Request, v any) error {
	err := httpx.DecodeJSON(r, v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	if errors.As(err, new(*http.MaxBytesError)) {
		return &Error{Kind: KindTooLarge, Message: msgTooLarge, Err: err}
	}
	return &Error{Kind: KindValidation, Message: msgValidation, Details: err.Error(), Err: err}
}

func writeError(w http.ResponseWriter, err error) {
	status, message, details := Translate(err)
	httpx.JSONError(w, status, message, details)
}
