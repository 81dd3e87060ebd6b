package book

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// IDPrefix is prepended to the generated UUID of every book.
	IDPrefix = "BOOK-"

	DefaultEdition      = "First Edition"
	DefaultAvailability = "available"
)

var (
	// ErrNotFound is returned by repositories when no book matches.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicate is returned by repositories when an insert or update violates
	// the uniqueness of id or title.
	ErrDuplicate = errors.New("book already exists")
	// ErrInvalid is returned by repositories when the store rejects a value
	// under its own schema rules.
	ErrInvalid = errors.New("invalid book data")
)

// Book represents a catalog record.
type Book struct {
	ID              string    `json:"id" bson:"id"`
	Title           string    `json:"title" bson:"title"`
	Author          string    `json:"author" bson:"author"`
	Genre           string    `json:"genre" bson:"genre"`
	PublicationDate time.Time `json:"publicationDate" bson:"publicationDate"`
	Edition         string    `json:"edition" bson:"edition"`
	Summary         string    `json:"summary,omitempty" bson:"summary,omitempty"`
	Availability    string    `json:"availability" bson:"availability"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewID generates a book identifier.
func NewID() string {
	return IDPrefix + uuid.NewString()
}

// Filter holds the search criteria for listing books. Text fields match
// case-insensitively as substrings; dates match on the calendar day.
type Filter struct {
	Title           string
	Author          string
	Genre           string
	PublicationDate *time.Time
	StartDate       *time.Time
	EndDate         *time.Time
}

// Empty reports whether no criterion is set.
func (f Filter) Empty() bool {
	return f.Title == "" && f.Author == "" && f.Genre == "" &&
		f.PublicationDate == nil && f.StartDate == nil && f.EndDate == nil
}

// Update lists the columns to change. Nil pointers are left untouched.
type Update struct {
	Title           *string
	Author          *string
	Genre           *string
	PublicationDate *time.Time
	Edition         *string
	Summary         *string
	Availability    *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Author == nil && u.Genre == nil && u.PublicationDate == nil &&
		u.Edition == nil && u.Summary == nil && u.Availability == nil
}

// Apply copies the set fields of u onto b.
func (u Update) Apply(b *Book) {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Author != nil {
		b.Author = *u.Author
	}
	if u.Genre != nil {
		b.Genre = *u.Genre
	}
	if u.PublicationDate != nil {
		b.PublicationDate = *u.PublicationDate
	}
	if u.Edition != nil {
		b.Edition = *u.Edition
	}
	if u.Summary != nil {
		b.Summary = *u.Summary
	}
	if u.Availability != nil {
		b.Availability = *u.Availability
	}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the UTC
// calendar date at midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
