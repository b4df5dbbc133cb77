package articles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"articlesearch-backend/lib/sqliteutil"
	"articlesearch-backend/services/articles/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SQLiteStore is a Store backed by a sqlite (or libsql) database that has
// had db.Schema applied.
type SQLiteStore struct {
	db  *sql.DB
	qry *db.Queries
}

func NewSQLiteStore(database *sql.DB) SQLiteStore {
	return SQLiteStore{
		db:  database,
		qry: db.New(database),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func articleFromRow(row db.Article) Article {
	return Article{
		ID:           row.ID,
		Source:       row.Source,
		Link:         row.Link,
		Keyword:      row.Keyword,
		Title:        row.Title,
		Author:       row.Author.String,
		Introduction: row.Introduction.String,
		Count:        row.Count,
	}
}

func recordSpanError(span trace.Span, err error, description string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}

func (s SQLiteStore) FindByKeyword(ctx context.Context, keyword string) ([]Article, error) {
	ctx, span := tracer.Start(ctx, "sqlite:FindByKeyword", trace.WithAttributes(
		attribute.String("article.keyword", keyword),
	))
	defer span.End()

	rows, err := s.qry.FindArticlesByKeyword(ctx, keyword)
	if err != nil {
		recordSpanError(span, err, "failed to query articles by keyword")
		return nil, fmt.Errorf("find articles by keyword: %w", err)
	}
	out := make([]Article, len(rows))
	for i, r := range rows {
		out[i] = articleFromRow(r)
	}
	return out, nil
}

func (s SQLiteStore) FindByTitle(ctx context.Context, title string) (Article, error) {
	ctx, span := tracer.Start(ctx, "sqlite:FindByTitle")
	defer span.End()

	row, err := s.qry.FindArticleByTitle(ctx, title)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrArticleNotFound
	}
	if err != nil {
		recordSpanError(span, err, "failed to query article by title")
		return Article{}, fmt.Errorf("find article by title: %w", err)
	}
	return articleFromRow(row), nil
}

func (s SQLiteStore) FindByLink(ctx context.Context, link string) (Article, error) {
	ctx, span := tracer.Start(ctx, "sqlite:FindByLink")
	defer span.End()

	row, err := s.qry.FindArticleByLink(ctx, link)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrArticleNotFound
	}
	if err != nil {
		recordSpanError(span, err, "failed to query article by link")
		return Article{}, fmt.Errorf("find article by link: %w", err)
	}
	return articleFromRow(row), nil
}

func (s SQLiteStore) Insert(ctx context.Context, article Article) (Article, error) {
	ctx, span := tracer.Start(ctx, "sqlite:Insert")
	defer span.End()

	row, err := s.qry.CreateArticle(ctx, db.CreateArticleParams{
		Source:       article.Source,
		Link:         article.Link,
		Keyword:      article.Keyword,
		Introduction: nullString(article.Introduction),
		Title:        article.Title,
		Author:       nullString(article.Author),
	})
	if err != nil && sqliteutil.IsUniqueViolation(err) {
		span.SetStatus(codes.Error, "constraint violation")
		return Article{}, fmt.Errorf("insert article %q: %w", article.Title, ErrConstraintViolation)
	}
	if err != nil {
		recordSpanError(span, err, "failed to insert article")
		return Article{}, fmt.Errorf("insert article: %w", err)
	}
	return articleFromRow(row), nil
}

func (s SQLiteStore) IncrementCount(ctx context.Context, article Article) (Article, error) {
	ctx, span := tracer.Start(ctx, "sqlite:IncrementCount", trace.WithAttributes(
		attribute.Int64("article.id", article.ID),
	))
	defer span.End()

	row, err := s.qry.IncrementArticleCount(ctx, article.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrArticleNotFound
	}
	if err != nil {
		recordSpanError(span, err, "failed to increment article count")
		return Article{}, fmt.Errorf("increment article count: %w", err)
	}
	return articleFromRow(row), nil
}
