package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
//
// Implementations must enforce uniqueness of ID and Title themselves and
// report violations as ErrDuplicate; the service's title lookup before an
// insert is not atomic with it.
type Repository interface {
	Insert(ctx context.Context, b *Book) error
	// Find returns the books matching f sorted by title ascending.
	Find(ctx context.Context, f Filter, skip, limit int) ([]Book, error)
	Count(ctx context.Context, f Filter) (int64, error)
	FindByID(ctx context.Context, id string) (Book, error)
	FindByTitle(ctx context.Context, title string) (Book, error)
	// Update applies u to the book with the given id and returns the stored result.
	Update(ctx context.Context, id string, u Update) (Book, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
