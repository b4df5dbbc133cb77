// Package static provides a Provider that returns a fixed list of
// candidates, it is used for seeding and in tests.
package static

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"articlesearch-backend/services/articles"

	"github.com/titanous/json5"
)

type Provider struct {
	candidates []articles.Candidate
	err        error
	calls      *atomic.Int64
	// block, if set, is waited on before returning
	block func(ctx context.Context) error
}

func New(candidates ...articles.Candidate) Provider {
	return Provider{
		candidates: candidates,
		calls:      &atomic.Int64{},
	}
}

// NewFailing returns a provider that always fails with err.
func NewFailing(err error) Provider {
	return Provider{
		err:   err,
		calls: &atomic.Int64{},
	}
}

// LoadFile reads a json5 array of candidates.
func LoadFile(path string) (Provider, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Provider{}, err
	}
	var candidates []articles.Candidate
	err = json5.Unmarshal(contents, &candidates)
	if err != nil {
		return Provider{}, fmt.Errorf("parse candidates %s: %w", path, err)
	}
	return New(candidates...), nil
}

// WithBlock returns a copy of the provider that calls block before every
// fetch returns, the copy shares the call counter.
func (p Provider) WithBlock(block func(ctx context.Context) error) Provider {
	p.block = block
	return p
}

func (p Provider) Fetch(ctx context.Context) ([]articles.Candidate, error) {
	p.calls.Add(1)

	if p.block != nil {
		err := p.block(ctx)
		if err != nil {
			return nil, &articles.FetchError{Provider: "static", Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &articles.FetchError{Provider: "static", Err: err}
	}
	if p.err != nil {
		return nil, &articles.FetchError{Provider: "static", Err: p.err}
	}

	out := make([]articles.Candidate, len(p.candidates))
	copy(out, p.candidates)
	return out, nil
}

// Calls returns how many times Fetch has been called.
func (p Provider) Calls() int64 {
	return p.calls.Load()
}
