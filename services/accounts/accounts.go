package accounts

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"articlesearch-backend/lib/sqliteutil"
	"articlesearch-backend/lib/validation"
	"articlesearch-backend/services/accounts/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("username or email is already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid session token")
)

type ValidationError = validation.Error

type RegisterForm struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Gender    string `json:"gender,omitempty" validate:"max=32"`
	Age       *int   `json:"age,omitempty" validate:"omitempty,gte=0,lte=110"`
	Country   string `json:"country,omitempty" validate:"max=64"`
	Location  string `json:"location,omitempty" validate:"max=128"`
	Education string `json:"education,omitempty" validate:"max=64"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Gender    string    `json:"gender,omitempty"`
	Age       *int      `json:"age,omitempty"`
	Country   string    `json:"country,omitempty"`
	Location  string    `json:"location,omitempty"`
	Education string    `json:"education,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Options struct {
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type Service struct {
	db   *sql.DB
	qry  *db.Queries
	cost int
}

func NewService(database *sql.DB, opts Options) Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return Service{
		db:   database,
		qry:  db.New(database),
		cost: cost,
	}
}

func normalizeEmail(email string) string {
	return strings.Trim(strings.ToLower(email), " \t\n")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func userFromRow(row db.User) User {
	u := User{
		ID:        row.ID,
		Username:  row.Username,
		Email:     row.Email,
		Gender:    row.Gender.String,
		Country:   row.Country.String,
		Location:  row.Location.String,
		Education: row.Education.String,
		CreatedAt: time.Unix(row.CreatedAt, 0),
	}
	if row.Age.Valid {
		age := int(row.Age.Int64)
		u.Age = &age
	}
	return u
}

// Register creates a user, the password is stored as a bcrypt hash.
func (s Service) Register(ctx context.Context, form RegisterForm) (User, error) {
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	form.Username = strings.TrimSpace(form.Username)
	form.Email = normalizeEmail(form.Email)
	form.Gender = strings.TrimSpace(form.Gender)
	form.Country = strings.TrimSpace(form.Country)
	form.Location = strings.TrimSpace(form.Location)
	form.Education = strings.TrimSpace(form.Education)

	err := validation.Struct(form)
	if err != nil {
		span.SetStatus(codes.Error, "invalid form")
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to hash password")
		return User{}, err
	}

	var age sql.NullInt64
	if form.Age != nil {
		age = sql.NullInt64{Int64: int64(*form.Age), Valid: true}
	}

	row, err := s.qry.CreateUser(ctx, db.CreateUserParams{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: string(hash),
		Gender:       nullString(form.Gender),
		Age:          age,
		Country:      nullString(form.Country),
		Location:     nullString(form.Location),
		Education:    nullString(form.Education),
		CreatedAt:    time.Now().Unix(),
	})
	if err != nil && sqliteutil.IsUniqueViolation(err) {
		span.SetStatus(codes.Error, "user exists")
		return User{}, ErrUserExists
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert user")
		return User{}, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.Int64("user.id", row.ID))
	return userFromRow(row), nil
}

func (s Service) createSession(ctx context.Context, userID int64) (string, error) {
	ctx, span := tracer.Start(ctx, "createSession")
	defer span.End()

	nonce := make([]byte, 32)
	_, err := rand.Read(nonce)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate token")
		return "", err
	}
	token := hex.EncodeToString(nonce)
	err = s.qry.CreateSession(ctx, db.CreateSessionParams{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert session")
		return "", err
	}
	return token, nil
}

// Login checks the password of a user and opens a new session for them.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials.
func (s Service) Login(ctx context.Context, username, password string) (Session, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	row, err := s.qry.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "unknown user")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find user")
		return Session{}, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password))
	if err != nil {
		span.SetStatus(codes.Error, "wrong password")
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, row.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token: token,
		User:  userFromRow(row),
	}, nil
}

// VerifySession returns the user that owns the session token.
func (s Service) VerifySession(ctx context.Context, token string) (User, error) {
	ctx, span := tracer.Start(ctx, "VerifySession")
	defer span.End()

	row, err := s.qry.FindUserBySession(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "unknown session")
		return User{}, ErrInvalidSession
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find session")
		return User{}, err
	}
	span.SetAttributes(attribute.Int64("user.id", row.ID))
	return userFromRow(row), nil
}

// Logout deletes the session, unknown tokens are ignored.
func (s Service) Logout(ctx context.Context, token string) error {
	ctx, span := tracer.Start(ctx, "Logout", trace.WithAttributes(
		attribute.Bool("session.provided", token != ""),
	))
	defer span.End()

	n, err := s.qry.DeleteSession(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete session")
		return err
	}
	span.SetAttributes(attribute.Int64("session.deleted", n))
	return nil
}
