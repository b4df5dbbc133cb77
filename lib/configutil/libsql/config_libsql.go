package configlibsql

import (
	"database/sql"
	"fmt"

	"articlesearch-backend/lib/sqliteutil"
)

// Struct is the config section of a sqlite database. File may also be a
// libsql url (libsql://, http(s)://, wss://) to use a remote database.
type Struct struct {
	File string `json:"file"`
	// AuthToken is appended to remote urls that don't carry one.
	AuthToken string `json:"auth_token"`
}

func (config Struct) path() string {
	if config.AuthToken == "" || !sqliteutil.IsRemote(config.File) {
		return config.File
	}
	return fmt.Sprintf("%s?authToken=%s", config.File, config.AuthToken)
}

// OpenDB opens the database and applies the schema to it.
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	return sqliteutil.OpenDB(schema, config.path())
}
