package book

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("date", validateDate)
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

// FieldError describes one rejected field of a request payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreateInput is the payload accepted by AddBook.
type CreateInput struct {
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author" validate:"required"`
	Genre           string `json:"genre" validate:"required"`
	PublicationDate string `json:"publicationDate" validate:"required,date"`
	Edition         string `json:"edition" validate:"required"`
	Summary         string `json:"summary" validate:"required"`
}

// validate returns a MissingField error when a required field is blank and a
// Validation error when a present field is malformed.
func (in CreateInput) validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Error{Kind: KindValidation, Message: msgValidation, Details: err.Error(), Err: err}
	}

	var missing, invalid []FieldError
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, FieldError{Field: fe.Field(), Message: fmt.Sprintf("%s is required", fe.Field())})
		case "date":
			invalid = append(invalid, FieldError{Field: fe.Field(), Message: msgInvalidDate})
		default:
			invalid = append(invalid, FieldError{Field: fe.Field(), Message: fmt.Sprintf("%s is invalid", fe.Field())})
		}
	}
	if len(missing) > 0 {
		return &Error{Kind: KindMissingField, Message: msgMissingField, Details: missing}
	}
	return &Error{Kind: KindValidation, Message: msgValidation, Details: invalid}
}

// Field is an optional request value that remembers whether it was sent.
// A JSON null counts as not sent.
type Field[T any] struct {
	Value   T
	Present bool
}

// Set returns a present Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{Value: v, Present: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = v
	f.Present = true
	return nil
}

// UpdateInput is the payload accepted by UpdateBook.
type UpdateInput struct {
	Title           Field[string] `json:"title"`
	Author          Field[string] `json:"author"`
	Genre           Field[string] `json:"genre"`
	PublicationDate Field[string] `json:"publicationDate"`
	Edition         Field[string] `json:"edition"`
	Summary         Field[string] `json:"summary"`
	Availability    Field[string] `json:"availability"`
}

// toUpdate turns the payload into a repository update. Text fields sent as
// empty strings are ignored; availability is applied whenever it is sent.
func (in UpdateInput) toUpdate() (Update, error) {
	var u Update
	u.Title = nonEmpty(in.Title)
	u.Author = nonEmpty(in.Author)
	u.Genre = nonEmpty(in.Genre)
	u.Edition = nonEmpty(in.Edition)
	u.Summary = nonEmpty(in.Summary)
	if in.Availability.Present {
		v := in.Availability.Value
		u.Availability = &v
	}
	if in.PublicationDate.Present && in.PublicationDate.Value != "" {
		d, err := ParseDate(in.PublicationDate.Value)
		if err != nil {
			return Update{}, &Error{
				Kind:    KindValidation,
				Message: msgValidation,
				Details: []FieldError{{Field: "publicationDate", Message: msgInvalidDate}},
				Err:     err,
			}
		}
		u.PublicationDate = &d
	}
	return u, nil
}

func nonEmpty(f Field[string]) *string {
	if !f.Present || f.Value == "" {
		return nil
	}
	v := f.Value
	return &v
}

// FilterInput carries the raw query parameters of a list request.
type FilterInput struct {
	Title           string
	Author          string
	Genre           string
	PublicationDate string
	StartDate       string
	EndDate         string
}

// toFilter parses the date parameters. It fails with NoFilter when nothing
// was supplied.
func (in FilterInput) toFilter() (Filter, error) {
	f := Filter{Title: in.Title, Author: in.Author, Genre: in.Genre}
	var invalid []FieldError
	parse := func(name, raw string) *time.Time {
		if raw == "" {
			return nil
		}
		d, err := ParseDate(raw)
		if err != nil {
			invalid = append(invalid, FieldError{Field: name, Message: msgInvalidDate})
			return nil
		}
		return &d
	}
	if in.Title == "" && in.Author == "" && in.Genre == "" &&
		in.PublicationDate == "" && in.StartDate == "" && in.EndDate == "" {
		return Filter{}, newError(KindNoFilter, msgNoFilter)
	}
	f.PublicationDate = parse("publicationDate", in.PublicationDate)
	f.StartDate = parse("startDate", in.StartDate)
	f.EndDate = parse("endDate", in.EndDate)
	if len(invalid) > 0 {
		return Filter{}, &Error{Kind: KindValidation, Message: msgValidation, Details: invalid}
	}
	// A date range replaces an exact publication date.
	if f.StartDate != nil || f.EndDate != nil {
		f.PublicationDate = nil
	}
	return f, nil
}
