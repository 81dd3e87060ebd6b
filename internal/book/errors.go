package book

import (
	"errors"
	"net/http"
)

// Kind classifies a failed book operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingField
	KindDuplicate
	KindNoFilter
	KindMissingID
	KindNotFound
	KindValidation
	KindPersistence
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "MissingField"
	case KindDuplicate:
		return "Duplicate"
	case KindNoFilter:
		return "NoFilter"
	case KindMissingID:
		return "MissingId"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationError"
	case KindPersistence:
		return "PersistenceError"
	case KindTooLarge:
		return "PayloadTooLarge"
	default:
		return "Unknown"
	}
}

// HTTPStatus returns the response status for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMissingField, KindDuplicate, KindNoFilter, KindMissingID, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

const (
	msgMissingField = "All fields are required"
	msgDuplicate    = "Book already exist"
	msgNoFilter     = "Please provide at least one search query"
	msgMissingID    = "Please provide a book ID"
	msgNotFound     = "Book not found"
	msgNoResults    = "No books found"
	msgValidation   = "Invalid input data. Please check your request."
	msgSaveFailed   = "An error occurred while saving the book"
	msgDatabase     = "An issue occurred while interacting with the database."
	msgInvalidDate  = "Invalid date format! Use format (YYYY-MM-DD)."
	msgTooLarge     = "Request body too large"
)

// Error is the typed outcome of a failed service operation.
type Error struct {
	Kind    Kind
	Message string
	// Details is surfaced to clients under error.details.
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindUnknown when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func persistenceError(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Details: err.Error(), Err: err}
}

// Translate maps any error to the status, message and details written to the
// client. Errors that did not come from the service become 500s.
func Translate(err error) (status int, message string, details any) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.HTTPStatus(), e.Message, e.Details
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, msgNotFound, nil
	case errors.Is(err, ErrDuplicate):
		return http.StatusBadRequest, msgDuplicate, nil
	}
	return http.StatusInternalServerError, msgDatabase, err.Error()
}
