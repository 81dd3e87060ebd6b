package book

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoRepo stores books in a MongoDB collection.
type MongoRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepo(coll *mongo.Collection) *MongoRepo {
	return &MongoRepo{coll: coll, now: time.Now}
}

// EnsureIndexes creates the unique indexes on id and title so duplicate
// inserts are rejected by the server.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create book indexes: %w", err)
	}
	return nil
}

func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *MongoRepo) Insert(ctx context.Context, b *Book) error {
	now := r.timestamp()
	b.CreatedAt = now
	b.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return mapMongoError(err)
	}
	return nil
}

func (r *MongoRepo) Find(ctx context.Context, f Filter, skip, limit int) ([]Book, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "title", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *MongoRepo) Count(ctx context.Context, f Filter) (int64, error) {
	return r.coll.CountDocuments(ctx, mongoFilter(f))
}

func (r *MongoRepo) FindByID(ctx context.Context, id string) (Book, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoRepo) FindByTitle(ctx context.Context, title string) (Book, error) {
	return r.findOne(ctx, bson.M{"title": title})
}

func (r *MongoRepo) findOne(ctx context.Context, filter bson.M) (Book, error) {
	var b Book
	if err := r.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		return Book{}, mapMongoError(err)
	}
	return b, nil
}

func (r *MongoRepo) Update(ctx context.Context, id string, u Update) (Book, error) {
	set := bson.M{"updatedAt": r.timestamp()}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Author != nil {
		set["author"] = *u.Author
	}
	if u.Genre != nil {
		set["genre"] = *u.Genre
	}
	if u.PublicationDate != nil {
		set["publicationDate"] = *u.PublicationDate
	}
	if u.Edition != nil {
		set["edition"] = *u.Edition
	}
	if u.Summary != nil {
		set["summary"] = *u.Summary
	}
	if u.Availability != nil {
		set["availability"] = *u.Availability
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b Book
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&b)
	if err != nil {
		return Book{}, mapMongoError(err)
	}
	return b, nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// timestamp is truncated to the millisecond precision BSON dates keep.
func (r *MongoRepo) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func mongoFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.Title != "" {
		filter["title"] = containsRegex(f.Title)
	}
	if f.Author != "" {
		filter["author"] = containsRegex(f.Author)
	}
	if f.Genre != "" {
		filter["genre"] = containsRegex(f.Genre)
	}
	if f.PublicationDate != nil {
		filter["publicationDate"] = *f.PublicationDate
	}
	if f.StartDate != nil || f.EndDate != nil {
		rng := bson.M{}
		if f.StartDate != nil {
			rng["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			rng["$lte"] = *f.EndDate
		}
		filter["publicationDate"] = rng
	}
	return filter
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func mapMongoError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
