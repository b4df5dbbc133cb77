package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"articlesearch-backend/services/articles/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PgxIface is the subset of *pgxpool.Pool used by PostgresStore.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Store backed by postgres.
type PostgresStore struct {
	pool PgxIface
}

func NewPostgresStore(pool PgxIface) PostgresStore {
	return PostgresStore{pool: pool}
}

const pgUniqueViolation = "23505"

const articleColumns = "id, source, link, keyword, introduction, title, author, count"

// Migrate creates the articles table if it doesn't exist.
func (s PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(db.PostgresSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err := s.pool.Exec(ctx, stmt)
		if err != nil {
			return fmt.Errorf("migrate articles: %w", err)
		}
	}
	return nil
}

func scanPgArticle(row pgx.Row) (Article, error) {
	var a Article
	var introduction, author *string
	err := row.Scan(
		&a.ID,
		&a.Source,
		&a.Link,
		&a.Keyword,
		&introduction,
		&a.Title,
		&author,
		&a.Count,
	)
	if err != nil {
		return Article{}, err
	}
	if introduction != nil {
		a.Introduction = *introduction
	}
	if author != nil {
		a.Author = *author
	}
	return a, nil
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s PostgresStore) FindByKeyword(ctx context.Context, keyword string) ([]Article, error) {
	ctx, span := tracer.Start(ctx, "postgres:FindByKeyword", trace.WithAttributes(
		attribute.String("article.keyword", keyword),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, "SELECT "+articleColumns+" FROM articles WHERE keyword = $1 ORDER BY id", keyword)
	if err != nil {
		recordSpanError(span, err, "failed to query articles by keyword")
		return nil, fmt.Errorf("find articles by keyword: %w", err)
	}
	defer rows.Close()

	out := []Article{}
	for rows.Next() {
		a, err := scanPgArticle(rows)
		if err != nil {
			recordSpanError(span, err, "failed to scan article")
			return nil, fmt.Errorf("find articles by keyword: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err, "failed to read article rows")
		return nil, fmt.Errorf("find articles by keyword: %w", err)
	}
	return out, nil
}

func (s PostgresStore) findOne(ctx context.Context, column, value string) (Article, error) {
	ctx, span := tracer.Start(ctx, "postgres:FindOne", trace.WithAttributes(
		attribute.String("article.lookup_column", column),
	))
	defer span.End()

	row := s.pool.QueryRow(ctx, "SELECT "+articleColumns+" FROM articles WHERE "+column+" = $1", value)
	a, err := scanPgArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Article{}, ErrArticleNotFound
	}
	if err != nil {
		recordSpanError(span, err, "failed to query article")
		return Article{}, fmt.Errorf("find article by %s: %w", column, err)
	}
	return a, nil
}

func (s PostgresStore) FindByTitle(ctx context.Context, title string) (Article, error) {
	return s.findOne(ctx, "title", title)
}

func (s PostgresStore) FindByLink(ctx context.Context, link string) (Article, error) {
	return s.findOne(ctx, "link", link)
}

func (s PostgresStore) Insert(ctx context.Context, article Article) (Article, error) {
	ctx, span := tracer.Start(ctx, "postgres:Insert")
	defer span.End()

	row := s.pool.QueryRow(
		ctx,
		"INSERT INTO articles (source, link, keyword, introduction, title, author, count) VALUES ($1, $2, $3, $4, $5, $6, 1) RETURNING "+articleColumns,
		article.Source,
		article.Link,
		article.Keyword,
		optionalText(article.Introduction),
		article.Title,
		optionalText(article.Author),
	)
	inserted, err := scanPgArticle(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		span.SetStatus(codes.Error, "constraint violation")
		return Article{}, fmt.Errorf("insert article %q (%s): %w", article.Title, pgErr.ConstraintName, ErrConstraintViolation)
	}
	if err != nil {
		recordSpanError(span, err, "failed to insert article")
		return Article{}, fmt.Errorf("insert article: %w", err)
	}
	return inserted, nil
}

func (s PostgresStore) IncrementCount(ctx context.Context, article Article) (Article, error) {
	ctx, span := tracer.Start(ctx, "postgres:IncrementCount", trace.WithAttributes(
		attribute.Int64("article.id", article.ID),
	))
	defer span.End()

	row := s.pool.QueryRow(ctx, "UPDATE articles SET count = count + 1 WHERE id = $1 RETURNING "+articleColumns, article.ID)
	updated, err := scanPgArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Article{}, ErrArticleNotFound
	}
	if err != nil {
		recordSpanError(span, err, "failed to increment article count")
		return Article{}, fmt.Errorf("increment article count: %w", err)
	}
	return updated, nil
}
