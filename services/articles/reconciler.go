package articles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"articlesearch-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const DefaultFetchTimeout = time.Second * 30

type ReconcilerOptions struct {
	// FetchTimeout bounds a single Provider.Fetch, zero disables the timeout.
	FetchTimeout time.Duration
	// Telemetry defaults to a slog backed API.
	Telemetry telemetry.API
}

// Reconciler answers keyword searches from the store, fetching from the
// provider and merging the fetched candidates into the store on a miss.
//
// It holds no in-memory state across searches, concurrent searches for the
// same keyword rely on the uniqueness constraints of the store.
type Reconciler struct {
	store        Store
	provider     Provider
	fetchTimeout time.Duration
	tel          telemetry.API
}

func NewReconciler(store Store, provider Provider, opts ReconcilerOptions) Reconciler {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return Reconciler{
		store:        store,
		provider:     provider,
		fetchTimeout: opts.FetchTimeout,
		tel:          telemetry.NewScopedAPI("articles", tel),
	}
}

type ReconcileReport struct {
	Inserted    int `json:"inserted"`
	Incremented int `json:"incremented"`
	Skipped     int `json:"skipped"`
}

type SearchResult struct {
	Keyword  string          `json:"keyword"`
	Articles []Article       `json:"articles"`
	Cached   bool            `json:"cached"`
	Report   ReconcileReport `json:"report"`
}

// Search returns every article stored under the keyword. If there are none,
// candidates are fetched from the provider and reconciled into the store
// first. A failed fetch is returned as *FetchError and leaves the store
// untouched.
func (r Reconciler) Search(ctx context.Context, keyword string) (SearchResult, error) {
	keyword, err := normalizeKeyword(keyword)
	if err != nil {
		return SearchResult{}, err
	}

	ctx, span := tracer.Start(ctx, "reconciler:Search", trace.WithAttributes(
		attribute.String("article.keyword", keyword),
	))
	defer span.End()

	existing, err := r.store.FindByKeyword(ctx, keyword)
	if err != nil {
		recordSpanError(span, err, "failed to check cache")
		r.tel.ReportBroken(report_reconcile_store, err, keyword)
		return SearchResult{}, err
	}
	if len(existing) > 0 {
		span.SetAttributes(attribute.Bool("search.cached", true))
		searchCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", true)))
		return SearchResult{
			Keyword:  keyword,
			Articles: existing,
			Cached:   true,
		}, nil
	}
	span.SetAttributes(attribute.Bool("search.cached", false))
	searchCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", false)))

	candidates, err := r.fetch(ctx)
	if err != nil {
		recordSpanError(span, err, "failed to fetch candidates")
		r.tel.ReportBroken(report_reconcile_fetch, err, keyword)
		return SearchResult{}, err
	}

	report, err := r.Reconcile(ctx, keyword, candidates)
	if err != nil {
		recordSpanError(span, err, "failed to reconcile candidates")
		return SearchResult{Keyword: keyword, Report: report}, err
	}

	result, err := r.store.FindByKeyword(ctx, keyword)
	if err != nil {
		recordSpanError(span, err, "failed to read reconciled articles")
		r.tel.ReportBroken(report_reconcile_store, err, keyword)
		return SearchResult{Keyword: keyword, Report: report}, err
	}

	return SearchResult{
		Keyword:  keyword,
		Articles: result,
		Report:   report,
	}, nil
}

func (r Reconciler) fetch(ctx context.Context) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "reconciler:fetch")
	defer span.End()

	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	candidates, err := r.provider.Fetch(ctx)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			err = &FetchError{Err: err}
		}
		recordSpanError(span, err, "provider failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("fetch.candidates", len(candidates)))
	return candidates, nil
}

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeIncremented
)

func (o outcome) String() string {
	if o == outcomeInserted {
		return "inserted"
	}
	return "incremented"
}

// Reconcile merges candidates into the store in the given order, inserting
// unseen titles under the keyword and incrementing the count of seen ones.
// Invalid candidates are skipped. A store error stops reconciliation, the
// candidates before it stay committed.
func (r Reconciler) Reconcile(ctx context.Context, keyword string, candidates []Candidate) (ReconcileReport, error) {
	keyword, err := normalizeKeyword(keyword)
	if err != nil {
		return ReconcileReport{}, err
	}

	ctx, span := tracer.Start(ctx, "reconciler:Reconcile", trace.WithAttributes(
		attribute.String("article.keyword", keyword),
		attribute.Int("reconcile.candidates", len(candidates)),
	))
	defer span.End()

	var report ReconcileReport
	for i, c := range candidates {
		err := c.Validate()
		if err != nil {
			report.Skipped++
			r.tel.ReportWarning(report_reconcile_candidate, err, i, c.Link)
			candidateCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "skipped")))
			continue
		}

		out, err := r.reconcileOne(ctx, keyword, c)
		if err != nil {
			recordSpanError(span, err, "failed to reconcile candidate")
			r.tel.ReportBroken(report_reconcile_store, err, keyword, c.Title)
			return report, fmt.Errorf("reconcile candidate %d: %w", i, err)
		}
		switch out {
		case outcomeInserted:
			report.Inserted++
		case outcomeIncremented:
			report.Incremented++
		}
		candidateCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", out.String())))
	}

	span.SetAttributes(
		attribute.Int("reconcile.inserted", report.Inserted),
		attribute.Int("reconcile.incremented", report.Incremented),
		attribute.Int("reconcile.skipped", report.Skipped),
	)
	r.tel.ReportDebug(report_reconcile_result, keyword, report.Inserted, report.Incremented, report.Skipped)
	r.tel.ReportCount(report_reconcile_inserted, int64(report.Inserted))
	r.tel.ReportCount(report_reconcile_incremented, int64(report.Incremented))
	r.tel.ReportCount(report_reconcile_skipped, int64(report.Skipped))
	return report, nil
}

func (r Reconciler) reconcileOne(ctx context.Context, keyword string, c Candidate) (outcome, error) {
	article := c.Article(keyword)

	existing, err := r.store.FindByTitle(ctx, article.Title)
	if err == nil {
		_, err = r.store.IncrementCount(ctx, existing)
		return outcomeIncremented, err
	}
	if !errors.Is(err, ErrArticleNotFound) {
		return 0, err
	}

	_, err = r.store.Insert(ctx, article)
	if err == nil {
		return outcomeInserted, nil
	}
	if !errors.Is(err, ErrConstraintViolation) {
		return 0, err
	}

	// another search inserted the same title (or link) since the lookup above
	r.tel.ReportWarning(report_reconcile_conflict, article.Title, article.Link)
	existing, err = r.store.FindByTitle(ctx, article.Title)
	if errors.Is(err, ErrArticleNotFound) {
		existing, err = r.store.FindByLink(ctx, article.Link)
	}
	if err != nil {
		return 0, err
	}
	_, err = r.store.IncrementCount(ctx, existing)
	return outcomeIncremented, err
}
