package book

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo keeps books in process memory. It enforces the same uniqueness
// rules as the database-backed repositories and is meant for local runs and
// tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	books map[string]Book
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{books: make(map[string]Book), now: time.Now}
}

func (r *MemoryRepo) Ping(context.Context) error { return nil }

func (r *MemoryRepo) Insert(_ context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[b.ID]; ok {
		return ErrDuplicate
	}
	if r.titleTaken(b.Title, "") {
		return ErrDuplicate
	}
	now := r.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.books[b.ID] = *b
	return nil
}

func (r *MemoryRepo) Find(_ context.Context, f Filter, skip, limit int) ([]Book, error) {
	matched := r.match(f)
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })
	if skip < 0 || skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryRepo) Count(_ context.Context, f Filter) (int64, error) {
	return int64(len(r.match(f))), nil
}

func (r *MemoryRepo) FindByID(_ context.Context, id string) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) FindByTitle(_ context.Context, title string) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.books {
		if b.Title == title {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *MemoryRepo) Update(_ context.Context, id string, u Update) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	if u.Title != nil && r.titleTaken(*u.Title, id) {
		return Book{}, ErrDuplicate
	}
	u.Apply(&b)
	b.UpdatedAt = r.now().UTC()
	r.books[id] = b
	return b, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return ErrNotFound
	}
	delete(r.books, id)
	return nil
}

// titleTaken must be called with mu held.
func (r *MemoryRepo) titleTaken(title, exceptID string) bool {
	for id, b := range r.books {
		if id != exceptID && b.Title == title {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) match(f Filter) []Book {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Book
	for _, b := range r.books {
		if matches(b, f) {
			out = append(out, b)
		}
	}
	return out
}

func matches(b Book, f Filter) bool {
	if f.Title != "" && !containsFold(b.Title, f.Title) {
		return false
	}
	if f.Author != "" && !containsFold(b.Author, f.Author) {
		return false
	}
	if f.Genre != "" && !containsFold(b.Genre, f.Genre) {
		return false
	}
	if f.PublicationDate != nil && !b.PublicationDate.Equal(*f.PublicationDate) {
		return false
	}
	if f.StartDate != nil && b.PublicationDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && b.PublicationDate.After(*f.EndDate) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
