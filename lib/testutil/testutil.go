package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"articlesearch-backend/lib/sqliteutil"
	"articlesearch-backend/lib/telemetry"

	"github.com/mazen160/go-random"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`, if set to "temp" a fresh file
	// inside t.TempDir() will be used
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))
	if params.DbSchema == "" {
		return ServiceResult{}, cleanup
	}

	dbpath := ":memory:"
	switch params.DbPath {
	case "", ":memory:":
	case "temp":
		dbpath = filepath.Join(t.TempDir(), "test.db")
	default:
		dbpath = params.DbPath
	}

	db, err := sqliteutil.OpenDB(params.DbSchema, dbpath)
	if err != nil {
		t.Fatal(err)
	}

	return ServiceResult{DB: db}, func() {
		db.Close()
		cleanup()
	}
}

// RandomString returns a random alphanumeric string of length n, it is used
// to make fixtures that will never collide with each other.
func RandomString(t testing.TB, n int) string {
	s, err := random.String(n)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
