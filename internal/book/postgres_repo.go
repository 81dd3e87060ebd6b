package book

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const (
	dialectPostgres = "postgres"
	tableBooks      = "books"

	colID              = "id"
	colTitle           = "title"
	colAuthor          = "author"
	colGenre           = "genre"
	colPublicationDate = "publication_date"
	colEdition         = "edition"
	colSummary         = "summary"
	colAvailability    = "availability"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"

	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
	pgCheckViolation   = "23514"
	pgInvalidDatetime  = "22007"
	pgDatetimeOverflow = "22008"
)

var bookColumns = []any{
	colID, colTitle, colAuthor, colGenre, colPublicationDate,
	colEdition, colSummary, colAvailability, colCreatedAt, colUpdatedAt,
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// EnsureSchema creates the books table and its unique constraints when missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Exec(timeoutCtx, schemaSQL); err != nil {
		return fmt.Errorf("ensure books schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}

func (r *PostgresRepo) Insert(ctx context.Context, b *Book) error {
	query, args, err := buildInsertQuery(b)
	if err != nil {
		return err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	stored, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		return mapPgError(err)
	}
	*b = stored
	return nil
}

func (r *PostgresRepo) Find(ctx context.Context, f Filter, skip, limit int) ([]Book, error) {
	query, args, err := buildFindQuery(f, skip, limit)
	if err != nil {
		return nil, err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	return collectBooks(rows)
}

// collectBooks scans and closes rows.
func collectBooks(rows pgx.Rows) ([]Book, error) {
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (r *PostgresRepo) Count(ctx context.Context, f Filter) (int64, error) {
	query, args, err := buildCountQuery(f)
	if err != nil {
		return 0, err
	}
	var total int64
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, query, args...).Scan(&total); err != nil {
		return 0, mapPgError(err)
	}
	return total, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (Book, error) {
	return r.findOne(ctx, goqu.C(colID).Eq(id))
}

func (r *PostgresRepo) FindByTitle(ctx context.Context, title string) (Book, error) {
	return r.findOne(ctx, goqu.C(colTitle).Eq(title))
}

func (r *PostgresRepo) findOne(ctx context.Context, where exp.Expression) (Book, error) {
	query, args, err := goqu.Dialect(dialectPostgres).
		From(tableBooks).
		Select(bookColumns...).
		Where(where).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		return Book{}, mapPgError(err)
	}
	return b, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id string, u Update) (Book, error) {
	query, args, err := buildUpdateQuery(id, u)
	if err != nil {
		return Book{}, err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		return Book{}, mapPgError(err)
	}
	return b, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	query, args, err := goqu.Dialect(dialectPostgres).
		Delete(tableBooks).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, args...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildInsertQuery(b *Book) (string, []any, error) {
	return goqu.Dialect(dialectPostgres).
		Insert(tableBooks).
		Rows(goqu.Record{
			colID:              b.ID,
			colTitle:           b.Title,
			colAuthor:          b.Author,
			colGenre:           b.Genre,
			colPublicationDate: b.PublicationDate,
			colEdition:         b.Edition,
			colSummary:         b.Summary,
			colAvailability:    b.Availability,
			colCreatedAt:       goqu.L("NOW()"),
			colUpdatedAt:       goqu.L("NOW()"),
		}).
		Returning(bookColumns...).
		Prepared(true).
		ToSQL()
}

func buildFindQuery(f Filter, skip, limit int) (string, []any, error) {
	return goqu.Dialect(dialectPostgres).
		From(tableBooks).
		Select(bookColumns...).
		Where(filterExpressions(f)...).
		Order(goqu.C(colTitle).Asc()).
		Offset(uint(skip)).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}

func buildCountQuery(f Filter) (string, []any, error) {
	return goqu.Dialect(dialectPostgres).
		From(tableBooks).
		Select(goqu.COUNT(goqu.Star())).
		Where(filterExpressions(f)...).
		Prepared(true).
		ToSQL()
}

func buildUpdateQuery(id string, u Update) (string, []any, error) {
	set := goqu.Record{colUpdatedAt: goqu.L("NOW()")}
	if u.Title != nil {
		set[colTitle] = *u.Title
	}
	if u.Author != nil {
		set[colAuthor] = *u.Author
	}
	if u.Genre != nil {
		set[colGenre] = *u.Genre
	}
	if u.PublicationDate != nil {
		set[colPublicationDate] = *u.PublicationDate
	}
	if u.Edition != nil {
		set[colEdition] = *u.Edition
	}
	if u.Summary != nil {
		set[colSummary] = *u.Summary
	}
	if u.Availability != nil {
		set[colAvailability] = *u.Availability
	}
	return goqu.Dialect(dialectPostgres).
		Update(tableBooks).
		Set(set).
		Where(goqu.C(colID).Eq(id)).
		Returning(bookColumns...).
		Prepared(true).
		ToSQL()
}

func filterExpressions(f Filter) []exp.Expression {
	var ex []exp.Expression
	if f.Title != "" {
		ex = append(ex, goqu.C(colTitle).ILike(containsPattern(f.Title)))
	}
	if f.Author != "" {
		ex = append(ex, goqu.C(colAuthor).ILike(containsPattern(f.Author)))
	}
	if f.Genre != "" {
		ex = append(ex, goqu.C(colGenre).ILike(containsPattern(f.Genre)))
	}
	if f.PublicationDate != nil {
		ex = append(ex, goqu.C(colPublicationDate).Eq(*f.PublicationDate))
	}
	if f.StartDate != nil {
		ex = append(ex, goqu.C(colPublicationDate).Gte(*f.StartDate))
	}
	if f.EndDate != nil {
		ex = append(ex, goqu.C(colPublicationDate).Lte(*f.EndDate))
	}
	return ex
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// wildcards in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Genre, &b.PublicationDate,
		&b.Edition, &b.Summary, &b.Availability, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return Book{}, err
	}
	b.PublicationDate = b.PublicationDate.UTC()
	return b, nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgNotNullViolation, pgCheckViolation, pgInvalidDatetime, pgDatetimeOverflow:
			return fmt.Errorf("%w: %s", ErrInvalid, pgErr.Message)
		}
	}
	return err
}
