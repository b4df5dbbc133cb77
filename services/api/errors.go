package api

import (
	"context"
	"errors"
	"log/slog"

	"articlesearch-backend/services/accounts"
	"articlesearch-backend/services/articles"

	"connectrpc.com/connect"
)

// connectError maps domain errors to connect codes. Errors that are not
// part of the api surface are logged and hidden behind CodeInternal.
func connectError(ctx context.Context, err error) error {
	var validationErr *articles.ValidationError
	var fetchErr *articles.FetchError

	switch {
	case errors.Is(err, articles.ErrEmptyKeyword),
		errors.Is(err, articles.ErrKeywordTooLong),
		errors.As(err, &validationErr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.As(err, &fetchErr):
		slog.WarnContext(ctx, "search fetch failed", "err", err)
		return connect.NewError(connect.CodeUnavailable, errors.New("search temporarily unavailable"))
	case errors.Is(err, accounts.ErrUserExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, accounts.ErrInvalidSession):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}

	slog.ErrorContext(ctx, "unexpected api error", "err", err)
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}
