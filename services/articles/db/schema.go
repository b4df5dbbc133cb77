package db

import _ "embed"

//go:embed schema.sql
var Schema string

//go:embed postgres.sql
var PostgresSchema string
