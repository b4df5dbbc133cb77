package db

import (
	"context"
	"database/sql"
)

// statements mirror query.sql.

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Article struct {
	ID           int64
	Source       string
	Link         string
	Keyword      string
	Introduction sql.NullString
	Title        string
	Author       sql.NullString
	Count        int64
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row scanner) (Article, error) {
	var i Article
	err := row.Scan(
		&i.ID,
		&i.Source,
		&i.Link,
		&i.Keyword,
		&i.Introduction,
		&i.Title,
		&i.Author,
		&i.Count,
	)
	return i, err
}

const findArticlesByKeyword = `select id, source, link, keyword, introduction, title, author, count from articles
where keyword = ?
order by id`

func (q *Queries) FindArticlesByKeyword(ctx context.Context, keyword string) ([]Article, error) {
	rows, err := q.db.QueryContext(ctx, findArticlesByKeyword, keyword)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Article
	for rows.Next() {
		i, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findArticleByTitle = `select id, source, link, keyword, introduction, title, author, count from articles
where title = ?`

func (q *Queries) FindArticleByTitle(ctx context.Context, title string) (Article, error) {
	row := q.db.QueryRowContext(ctx, findArticleByTitle, title)
	return scanArticle(row)
}

const findArticleByLink = `select id, source, link, keyword, introduction, title, author, count from articles
where link = ?`

func (q *Queries) FindArticleByLink(ctx context.Context, link string) (Article, error) {
	row := q.db.QueryRowContext(ctx, findArticleByLink, link)
	return scanArticle(row)
}

const createArticle = `insert into articles (source, link, keyword, introduction, title, author, count)
values (?, ?, ?, ?, ?, ?, 1)
returning id, source, link, keyword, introduction, title, author, count`

type CreateArticleParams struct {
	Source       string
	Link         string
	Keyword      string
	Introduction sql.NullString
	Title        string
	Author       sql.NullString
}

func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (Article, error) {
	row := q.db.QueryRowContext(ctx, createArticle,
		arg.Source,
		arg.Link,
		arg.Keyword,
		arg.Introduction,
		arg.Title,
		arg.Author,
	)
	return scanArticle(row)
}

const incrementArticleCount = `update articles set count = count + 1
where id = ?
returning id, source, link, keyword, introduction, title, author, count`

func (q *Queries) IncrementArticleCount(ctx context.Context, id int64) (Article, error) {
	row := q.db.QueryRowContext(ctx, incrementArticleCount, id)
	return scanArticle(row)
}
