package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	configlibsql "articlesearch-backend/lib/configutil/libsql"
	accountsdb "articlesearch-backend/services/accounts/db"
	"articlesearch-backend/services/articles"
	articlesdb "articlesearch-backend/services/articles/db"
	"articlesearch-backend/services/scraper/ptt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	driverSqlite   = "sqlite"
	driverPostgres = "postgres"
)

type PostgresConfig struct {
	URL string `json:"url"`
}

type DatabaseConfig struct {
	// Driver picks where articles are stored, "sqlite" (which also covers
	// remote libsql urls) or "postgres". Accounts always live in sqlite.
	Driver   string              `json:"driver"`
	Sqlite   configlibsql.Struct `json:"sqlite"`
	Postgres PostgresConfig      `json:"postgres"`
}

type SearchConfig struct {
	// FetchTimeout is in seconds.
	FetchTimeout int `json:"fetch_timeout"`
}

type ServerConfig struct {
	Port        int    `json:"port"`
	AccessToken string `json:"access_token"`
}

type Config struct {
	Database DatabaseConfig `json:"database"`
	Scraper  ptt.Config     `json:"scraper"`
	Search   SearchConfig   `json:"search"`
	Server   ServerConfig   `json:"server"`
}

var DefaultConfig = Config{
	Database: DatabaseConfig{
		Driver: driverSqlite,
		Sqlite: configlibsql.Struct{File: "data/articlesearch.db"},
	},
	Scraper: ptt.DefaultConfig,
	Search: SearchConfig{
		FetchTimeout: int(articles.DefaultFetchTimeout / time.Second),
	},
	Server: ServerConfig{
		Port: 8000,
	},
}

type databases struct {
	articles articles.Store
	sqlite   *sql.DB
	pool     *pgxpool.Pool
}

func (d databases) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.sqlite != nil {
		d.sqlite.Close()
	}
}

// openDatabases opens the article store and the sqlite database holding
// accounts, applying schemas to both.
func openDatabases(ctx context.Context, cfg DatabaseConfig) (databases, error) {
	switch cfg.Driver {
	case driverSqlite:
		db, err := cfg.Sqlite.OpenDB(articlesdb.Schema + "\n" + accountsdb.Schema)
		if err != nil {
			return databases{}, err
		}
		return databases{
			articles: articles.NewSQLiteStore(db),
			sqlite:   db,
		}, nil
	case driverPostgres:
		if cfg.Postgres.URL == "" {
			return databases{}, fmt.Errorf("database.postgres.url was not specified")
		}
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return databases{}, fmt.Errorf("connect postgres: %w", err)
		}
		store := articles.NewPostgresStore(pool)
		err = store.Migrate(ctx)
		if err != nil {
			pool.Close()
			return databases{}, err
		}

		db, err := cfg.Sqlite.OpenDB(accountsdb.Schema)
		if err != nil {
			pool.Close()
			return databases{}, err
		}
		return databases{
			articles: store,
			sqlite:   db,
			pool:     pool,
		}, nil
	}
	return databases{}, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
