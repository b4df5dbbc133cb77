package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"articlesearch-backend/lib/validation"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	// ErrConstraintViolation is returned by Store.Insert when the link or
	// title of the article already exists.
	ErrConstraintViolation = errors.New("article constraint violation")
	ErrEmptyKeyword        = errors.New("keyword must not be empty")
	ErrKeywordTooLong      = errors.New("keyword must be at most 255 characters")
)

// ValidationError is returned for candidates that are missing required
// fields or exceed the column bounds of the articles table.
type ValidationError = validation.Error

// FetchError wraps a failure of a Provider. It is never treated as an empty
// result.
type FetchError struct {
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("fetch candidates: %s", e.Err)
	}
	return fmt.Sprintf("fetch candidates from %s: %s", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Article struct {
	ID           int64  `json:"id"`
	Source       string `json:"source"`
	Link         string `json:"link"`
	Keyword      string `json:"keyword"`
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	Introduction string `json:"introduction,omitempty"`
	Count        int64  `json:"count"`
}

// Candidate is an article as observed by a Provider, before it has been
// stamped with a keyword and persisted.
type Candidate struct {
	Source       string `json:"source" validate:"required,max=64"`
	Link         string `json:"link" validate:"required,url,max=255"`
	Title        string `json:"title" validate:"required,max=255"`
	Author       string `json:"author,omitempty"`
	Introduction string `json:"introduction,omitempty"`
}

func (c Candidate) normalized() Candidate {
	c.Source = strings.TrimSpace(c.Source)
	c.Link = strings.TrimSpace(c.Link)
	c.Title = strings.TrimSpace(c.Title)
	c.Author = strings.TrimSpace(c.Author)
	c.Introduction = strings.TrimSpace(c.Introduction)
	return c
}

// Validate returns a *ValidationError if the candidate cannot be persisted.
func (c Candidate) Validate() error {
	return validation.Struct(c.normalized())
}

// Article stamps the candidate with the keyword of the search that fetched
// it.
func (c Candidate) Article(keyword string) Article {
	c = c.normalized()
	return Article{
		Source:       c.Source,
		Link:         c.Link,
		Keyword:      keyword,
		Title:        c.Title,
		Author:       c.Author,
		Introduction: c.Introduction,
		Count:        1,
	}
}

// Provider is the external source of candidates.
//
// It is not parameterized by keyword, whatever it returns is stored under the
// keyword of the search that triggered the fetch.
type Provider interface {
	Fetch(ctx context.Context) ([]Candidate, error)
}

// Store persists articles. Link and title are unique across all articles,
// implementations must enforce this and report violations from Insert as
// ErrConstraintViolation.
type Store interface {
	// FindByKeyword returns all articles with the keyword in insertion order.
	FindByKeyword(ctx context.Context, keyword string) ([]Article, error)
	// FindByTitle returns ErrArticleNotFound if there is no such article.
	FindByTitle(ctx context.Context, title string) (Article, error)
	// FindByLink returns ErrArticleNotFound if there is no such article.
	FindByLink(ctx context.Context, link string) (Article, error)
	Insert(ctx context.Context, article Article) (Article, error)
	// IncrementCount atomically adds 1 to the count of the stored article
	// with the same id and returns the updated row.
	IncrementCount(ctx context.Context, article Article) (Article, error)
}

func normalizeKeyword(keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", ErrEmptyKeyword
	}
	if len([]rune(keyword)) > 255 {
		return "", ErrKeywordTooLong
	}
	return keyword, nil
}
