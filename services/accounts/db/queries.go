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

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Gender       sql.NullString
	Age          sql.NullInt64
	Country      sql.NullString
	Location     sql.NullString
	Education    sql.NullString
	CreatedAt    int64
}

func scanUser(row *sql.Row) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.Gender,
		&i.Age,
		&i.Country,
		&i.Location,
		&i.Education,
		&i.CreatedAt,
	)
	return i, err
}

const createUser = `insert into users (username, email, password_hash, gender, age, country, location, education, created_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)
returning id, username, email, password_hash, gender, age, country, location, education, created_at`

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Gender       sql.NullString
	Age          sql.NullInt64
	Country      sql.NullString
	Location     sql.NullString
	Education    sql.NullString
	CreatedAt    int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.Email,
		arg.PasswordHash,
		arg.Gender,
		arg.Age,
		arg.Country,
		arg.Location,
		arg.Education,
		arg.CreatedAt,
	)
	return scanUser(row)
}

const findUserByUsername = `select id, username, email, password_hash, gender, age, country, location, education, created_at from users
where username = ?`

func (q *Queries) FindUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, findUserByUsername, username)
	return scanUser(row)
}

const createSession = `insert into sessions (token, user_id, created_at) values (?, ?, ?)`

type CreateSessionParams struct {
	Token     string
	UserID    int64
	CreatedAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession, arg.Token, arg.UserID, arg.CreatedAt)
	return err
}

const findUserBySession = `select users.id, users.username, users.email, users.password_hash, users.gender, users.age,
    users.country, users.location, users.education, users.created_at
from sessions
inner join users on users.id = sessions.user_id
where sessions.token = ?`

func (q *Queries) FindUserBySession(ctx context.Context, token string) (User, error) {
	row := q.db.QueryRowContext(ctx, findUserBySession, token)
	return scanUser(row)
}

const deleteSession = `delete from sessions where token = ?`

func (q *Queries) DeleteSession(ctx context.Context, token string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSession, token)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
