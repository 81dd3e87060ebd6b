package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"librarycatalog/internal/book"
	"librarycatalog/internal/config"
	"librarycatalog/internal/platform/mongodb"
	"librarycatalog/internal/platform/postgres"
)

var (
	genres  = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	authors = []string{"Ada Palmer", "Italo Calvino", "Mary Beard", "Ted Chiang", "Yoko Ogawa", "Ken Liu", "Hilary Mantel", "N. K. Jemisin"}
	words   = []string{"journey", "discovery", "adventure", "mystery", "secret", "truth", "wisdom", "knowledge", "power", "destiny"}
)

func main() {
	count := flag.Int("count", 100, "Number of books to add")
	flag.Parse()

	config.LoadEnvFiles()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(context.Background(), cfg, *count); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, count int) error {
	var repo book.Repository
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		pgRepo := book.NewPostgresRepo(pool, cfg.DBTimeout)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = pgRepo
	case config.DriverMongo:
		db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Disconnect(context.Background()) }()
		mongoRepo := book.NewMongoRepo(db.Books())
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = mongoRepo
	default:
		return fmt.Errorf("cannot seed the %q store", cfg.StoreDriver)
	}

	service := book.NewService(repo)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	added, skipped := 0, 0
	for i := 0; i < count; i++ {
		_, err := service.AddBook(ctx, randomBook(rng, i+1))
		switch book.KindOf(err) {
		case book.KindUnknown:
			if err != nil {
				return err
			}
			added++
		case book.KindDuplicate:
			skipped++
		default:
			return err
		}
		if (i+1)%1000 == 0 {
			slog.Info("seed progress", "done", i+1, "total", count)
		}
	}

	slog.Info("seed complete", "added", added, "skipped_duplicates", skipped)
	return nil
}

func randomBook(rng *rand.Rand, n int) book.CreateInput {
	published := time.Date(1950+rng.Intn(75), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
	word := words[rng.Intn(len(words))]
	return book.CreateInput{
		Title:           fmt.Sprintf("Book Title %d - %s", n, word),
		Author:          authors[rng.Intn(len(authors))],
		Genre:           genres[rng.Intn(len(genres))],
		PublicationDate: published.Format(time.DateOnly),
		Edition:         book.DefaultEdition,
		Summary:         fmt.Sprintf("This is a book about %s.", word),
	}
}
