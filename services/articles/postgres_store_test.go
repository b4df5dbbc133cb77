package articles_test

import (
	"context"
	"regexp"
	"testing"

	"articlesearch-backend/services/articles"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var articleRowColumns = []string{"id", "source", "link", "keyword", "introduction", "title", "author", "count"}

// empty optional columns are sent as typed nil pointers
var noText *string

func TestPostgresFindByKeyword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := articles.NewPostgresStore(mock)

	intro := "cherry blossoms"
	mock.ExpectQuery(regexp.QuoteMeta("FROM articles WHERE keyword = $1")).
		WithArgs("japan").
		WillReturnRows(pgxmock.NewRows(articleRowColumns).
			AddRow(int64(1), "ptt/Travel", "https://www.ptt.cc/bbs/Travel/M.1.A.html", "japan", &intro, "Kyoto", nil, int64(1)).
			AddRow(int64(2), "ptt/Travel", "https://www.ptt.cc/bbs/Travel/M.2.A.html", "japan", nil, "Osaka", nil, int64(4)))

	rows, err := store.FindByKeyword(context.Background(), "japan")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "cherry blossoms", rows[0].Introduction)
	require.Empty(t, rows[1].Introduction)
	require.Empty(t, rows[1].Author)
	require.EqualValues(t, 4, rows[1].Count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByTitleNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := articles.NewPostgresStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles WHERE title = $1")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(articleRowColumns))

	_, err = store.FindByTitle(context.Background(), "missing")
	require.ErrorIs(t, err, articles.ErrArticleNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := articles.NewPostgresStore(mock)

	mock.ExpectQuery("INSERT INTO articles").
		WithArgs("ptt/Travel", "https://www.ptt.cc/bbs/Travel/M.1.A.html", "japan", noText, "Kyoto", noText).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "articles_link_key"})

	_, err = store.Insert(context.Background(), articles.Article{
		Source:  "ptt/Travel",
		Link:    "https://www.ptt.cc/bbs/Travel/M.1.A.html",
		Keyword: "japan",
		Title:   "Kyoto",
	})
	require.ErrorIs(t, err, articles.ErrConstraintViolation)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertAndIncrement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := articles.NewPostgresStore(mock)
	author := "alice"

	mock.ExpectQuery("INSERT INTO articles").
		WithArgs("ptt/Travel", "https://www.ptt.cc/bbs/Travel/M.1.A.html", "japan", noText, "Kyoto", &author).
		WillReturnRows(pgxmock.NewRows(articleRowColumns).
			AddRow(int64(7), "ptt/Travel", "https://www.ptt.cc/bbs/Travel/M.1.A.html", "japan", nil, "Kyoto", &author, int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE articles SET count = count + 1 WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(articleRowColumns).
			AddRow(int64(7), "ptt/Travel", "https://www.ptt.cc/bbs/Travel/M.1.A.html", "japan", nil, "Kyoto", &author, int64(2)))

	inserted, err := store.Insert(context.Background(), articles.Article{
		Source:  "ptt/Travel",
		Link:    "https://www.ptt.cc/bbs/Travel/M.1.A.html",
		Keyword: "japan",
		Title:   "Kyoto",
		Author:  "alice",
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, inserted.ID)
	require.Equal(t, "alice", inserted.Author)

	updated, err := store.IncrementCount(context.Background(), inserted)
	require.NoError(t, err)
	require.EqualValues(t, 2, updated.Count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := articles.NewPostgresStore(mock)

	mock.ExpectExec("create table if not exists articles").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("create index if not exists articles_keyword_idx").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
