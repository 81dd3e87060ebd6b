package book

import (
	"context"
	"errors"
	"log/slog"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListResult is one page of a search.
type ListResult struct {
	Books      []Book
	Count      int64
	Pagination Pagination
}

// AddBook validates in, rejects duplicate titles and stores a new book.
func (s *Service) AddBook(ctx context.Context, in CreateInput) (Book, error) {
	if err := in.validate(); err != nil {
		return Book{}, err
	}
	published, err := ParseDate(in.PublicationDate)
	if err != nil {
		return Book{}, &Error{Kind: KindValidation, Message: msgValidation, Err: err}
	}

	_, err = s.repo.FindByTitle(ctx, in.Title)
	switch {
	case err == nil:
		return Book{}, newError(KindDuplicate, msgDuplicate)
	case !errors.Is(err, ErrNotFound):
		slog.ErrorContext(ctx, "lookup book by title", "title", in.Title, "error", err)
		return Book{}, persistenceError(msgSaveFailed, err)
	}

	b := Book{
		ID:              NewID(),
		Title:           in.Title,
		Author:          in.Author,
		Genre:           in.Genre,
		PublicationDate: published,
		Edition:         in.Edition,
		Summary:         in.Summary,
		Availability:    DefaultAvailability,
	}
	if b.Edition == "" {
		b.Edition = DefaultEdition
	}

	if err := s.repo.Insert(ctx, &b); err != nil {
		return Book{}, s.storeError(ctx, "save book", b.ID, msgSaveFailed, err)
	}
	return b, nil
}

// ListBooks returns the requested page of books matching in along with the
// total number of matches.
func (s *Service) ListBooks(ctx context.Context, in FilterInput, page Pagination) (ListResult, error) {
	f, err := in.toFilter()
	if err != nil {
		return ListResult{}, err
	}

	books, err := s.repo.Find(ctx, f, page.Skip, page.PageSize)
	if err != nil {
		slog.ErrorContext(ctx, "find books", "error", err)
		return ListResult{}, persistenceError(msgDatabase, err)
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		slog.ErrorContext(ctx, "count books", "error", err)
		return ListResult{}, persistenceError(msgDatabase, err)
	}
	// An empty page is reported the same way whether nothing matched or the
	// page lies past the last match.
	if len(books) == 0 {
		return ListResult{}, newError(KindNotFound, msgNoResults)
	}
	return ListResult{Books: books, Count: total, Pagination: page}, nil
}

// GetBookByID returns the book with the given id.
func (s *Service) GetBookByID(ctx context.Context, id string) (Book, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Book{}, s.storeError(ctx, "find book", id, msgDatabase, err)
	}
	return b, nil
}

// UpdateBook applies the fields present in in to the book with the given id.
func (s *Service) UpdateBook(ctx context.Context, id string, in UpdateInput) (Book, error) {
	if id == "" {
		return Book{}, newError(KindMissingID, msgMissingID)
	}
	u, err := in.toUpdate()
	if err != nil {
		return Book{}, err
	}
	if u.Empty() {
		return s.GetBookByID(ctx, id)
	}

	b, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return Book{}, s.storeError(ctx, "update book", id, msgDatabase, err)
	}
	return b, nil
}

// DeleteBook removes the book with the given id.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if id == "" {
		return newError(KindMissingID, msgMissingID)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.storeError(ctx, "delete book", id, msgDatabase, err)
	}
	return nil
}

// storeError folds repository failures into the typed outcomes. Anything
// unrecognised becomes a PersistenceError carrying msg.
func (s *Service) storeError(ctx context.Context, op, id, msg string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return newError(KindNotFound, msgNotFound)
	case errors.Is(err, ErrDuplicate):
		return newError(KindDuplicate, msgDuplicate)
	case errors.Is(err, ErrInvalid):
		return &Error{Kind: KindValidation, Message: msgValidation, Details: err.Error(), Err: err}
	}
	slog.ErrorContext(ctx, op, "id", id, "error", err)
	return persistenceError(msg, err)
}
