package book

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func bookDoc(id, title string) bson.D {
	return bson.D{
		{Key: "id", Value: id},
		{Key: "title", Value: title},
		{Key: "author", Value: "Ursula K. Le Guin"},
		{Key: "genre", Value: "Fantasy"},
		{Key: "publicationDate", Value: time.Date(1968, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Key: "edition", Value: DefaultEdition},
		{Key: "availability", Value: DefaultAvailability},
	}
}

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)

	mt.Run("insert sets timestamps", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		repo.now = func() time.Time { return fixed }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		b := &Book{ID: "BOOK-1", Title: "A Wizard of Earthsea"}
		require.NoError(mt, repo.Insert(context.Background(), b))

		assert.Equal(mt, fixed.Truncate(time.Millisecond), b.CreatedAt)
		assert.Equal(mt, b.CreatedAt, b.UpdatedAt)
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: library.books index: title_1",
		}))

		err := repo.Insert(context.Background(), &Book{ID: "BOOK-2", Title: "A Wizard of Earthsea"})

		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "library.books", mtest.FirstBatch, bookDoc("BOOK-1", "A Wizard of Earthsea")))

		b, err := repo.FindByID(context.Background(), "BOOK-1")

		require.NoError(mt, err)
		assert.Equal(mt, "A Wizard of Earthsea", b.Title)
		assert.Equal(mt, time.Date(1968, 1, 1, 0, 0, 0, 0, time.UTC), b.PublicationDate)
	})

	mt.Run("find by title missing", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "library.books", mtest.FirstBatch))

		_, err := repo.FindByTitle(context.Background(), "Tehanu")

		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find page", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "library.books", mtest.FirstBatch,
			bookDoc("BOOK-1", "A Wizard of Earthsea"),
			bookDoc("BOOK-2", "The Tombs of Atuan"),
		))

		books, err := repo.Find(context.Background(), Filter{Author: "le guin"}, 0, 5)

		require.NoError(mt, err)
		require.Len(mt, books, 2)
		assert.Equal(mt, "BOOK-2", books[1].ID)
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "library.books", mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(7)}},
		))

		n, err := repo.Count(context.Background(), Filter{Genre: "fantasy"})

		require.NoError(mt, err)
		assert.Equal(mt, int64(7), n)
	})

	mt.Run("update returns stored book", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		doc := bookDoc("BOOK-1", "A Wizard of Earthsea")
		doc[6] = bson.E{Key: "availability", Value: "borrowed"}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		availability := "borrowed"
		b, err := repo.Update(context.Background(), "BOOK-1", Update{Availability: &availability})

		require.NoError(mt, err)
		assert.Equal(mt, "borrowed", b.Availability)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}),
		)

		assert.NoError(mt, repo.Delete(context.Background(), "BOOK-1"))
		assert.ErrorIs(mt, repo.Delete(context.Background(), "BOOK-1"), ErrNotFound)
	})
}

func TestMongoFilter(t *testing.T) {
	day := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("text fields match as literal substrings", func(t *testing.T) {
		filter := mongoFilter(Filter{Title: "c++ (2nd)"})

		assert.Equal(t, primitive.Regex{Pattern: `c\+\+ \(2nd\)`, Options: "i"}, filter["title"])
		assert.NotContains(t, filter, "author")
	})

	t.Run("exact date", func(t *testing.T) {
		filter := mongoFilter(Filter{PublicationDate: &day})

		assert.Equal(t, day, filter["publicationDate"])
	})

	t.Run("range", func(t *testing.T) {
		filter := mongoFilter(Filter{StartDate: &day, EndDate: &end})

		assert.Equal(t, bson.M{"$gte": day, "$lte": end}, filter["publicationDate"])
	})
}
