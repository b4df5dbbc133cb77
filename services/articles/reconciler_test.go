package articles_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"articlesearch-backend/lib/telemetry"
	"articlesearch-backend/lib/testutil"
	"articlesearch-backend/services/articles"
	"articlesearch-backend/services/articles/db"
	"articlesearch-backend/services/scraper/static"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) (articles.SQLiteStore, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/articles",
		DbSchema: db.Schema,
	})
	return articles.NewSQLiteStore(res.DB), cleanup
}

func candidate(title, link string) articles.Candidate {
	return articles.Candidate{
		Source: "ptt/Travel",
		Link:   link,
		Title:  title,
		Author: "alice",
	}
}

func TestSearchCacheHitIdempotence(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	provider := static.New(
		candidate("[遊記] Kyoto in autumn", "https://www.ptt.cc/bbs/Travel/M.1.A.html"),
		candidate("[問題] Osaka hotels", "https://www.ptt.cc/bbs/Travel/M.2.A.html"),
		candidate("[心得] Nara deer", "https://www.ptt.cc/bbs/Travel/M.3.A.html"),
	)
	reconciler := articles.NewReconciler(store, provider, articles.ReconcilerOptions{})
	ctx := context.Background()

	first, err := reconciler.Search(ctx, "japan")
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, first.Cached)
	require.Len(t, first.Articles, 3)
	require.Equal(t, articles.ReconcileReport{Inserted: 3}, first.Report)
	require.EqualValues(t, 1, provider.Calls())

	second, err := reconciler.Search(ctx, "japan")
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, second.Cached)
	require.EqualValues(t, 1, provider.Calls())
	require.Empty(t, cmp.Diff(first.Articles, second.Articles))

	third, err := reconciler.Search(ctx, "  japan ")
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, third.Cached)
	require.EqualValues(t, 1, provider.Calls())
	require.Len(t, third.Articles, 3)
}

func TestSearchDedupByTitle(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	provider := static.New(
		candidate("same title", "https://www.ptt.cc/bbs/Travel/M.10.A.html"),
		candidate("same title", "https://www.ptt.cc/bbs/Travel/M.11.A.html"),
		candidate("same title", "https://www.ptt.cc/bbs/Travel/M.12.A.html"),
	)
	reconciler := articles.NewReconciler(store, provider, articles.ReconcilerOptions{})

	res, err := reconciler.Search(context.Background(), "dedup")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, articles.ReconcileReport{Inserted: 1, Incremented: 2}, res.Report)
	require.Len(t, res.Articles, 1)
	require.EqualValues(t, 3, res.Articles[0].Count)
	require.Equal(t, "https://www.ptt.cc/bbs/Travel/M.10.A.html", res.Articles[0].Link)

	_, err = store.FindByLink(context.Background(), "https://www.ptt.cc/bbs/Travel/M.11.A.html")
	require.ErrorIs(t, err, articles.ErrArticleNotFound)
}

func TestSearchFirstWriteWins(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	original := candidate("first write wins", "https://www.ptt.cc/bbs/Travel/M.20.A.html")
	original.Introduction = "A"
	_, err := store.Insert(ctx, original.Article("older keyword"))
	if err != nil {
		t.Fatal(err)
	}

	update := candidate("first write wins", "https://www.ptt.cc/bbs/Travel/M.21.A.html")
	update.Introduction = "B"
	update.Source = "other"
	reconciler := articles.NewReconciler(store, static.New(update), articles.ReconcilerOptions{})

	res, err := reconciler.Search(ctx, "newer keyword")
	if err != nil {
		t.Fatal(err)
	}
	// the only candidate was already stored under another keyword
	require.Empty(t, res.Articles)
	require.Equal(t, articles.ReconcileReport{Incremented: 1}, res.Report)

	stored, err := store.FindByTitle(ctx, "first write wins")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "A", stored.Introduction)
	require.Equal(t, "ptt/Travel", stored.Source)
	require.Equal(t, "https://www.ptt.cc/bbs/Travel/M.20.A.html", stored.Link)
	require.Equal(t, "older keyword", stored.Keyword)
	require.EqualValues(t, 2, stored.Count)
}

func TestSearchConcurrentMissConvergence(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	// both searches have to pass the cache check before either reconciles
	var arrived sync.WaitGroup
	arrived.Add(2)
	barrier := func(ctx context.Context) error {
		arrived.Done()
		done := make(chan struct{})
		go func() {
			arrived.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	provider := static.New(
		candidate("concurrent", "https://www.ptt.cc/bbs/Travel/M.30.A.html"),
	).WithBlock(barrier)
	reconciler := articles.NewReconciler(store, provider, articles.ReconcilerOptions{
		FetchTimeout: time.Second * 5,
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reconciler.Search(context.Background(), "race")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 2, provider.Calls())

	rows, err := store.FindByKeyword(context.Background(), "race")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, rows, 1)
	require.EqualValues(t, 2, rows[0].Count)
}

func TestSearchFetchFailure(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	cause := errors.New("connection reset")
	reconciler := articles.NewReconciler(store, static.NewFailing(cause), articles.ReconcilerOptions{})

	_, err := reconciler.Search(context.Background(), "unreachable")
	require.Error(t, err)
	var fetchErr *articles.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.ErrorIs(t, err, cause)

	rows, err := store.FindByKeyword(context.Background(), "unreachable")
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, rows)
}

type plainErrorProvider struct{}

func (plainErrorProvider) Fetch(context.Context) ([]articles.Candidate, error) {
	return nil, errors.New("boom")
}

func TestSearchWrapsProviderErrors(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	reconciler := articles.NewReconciler(store, plainErrorProvider{}, articles.ReconcilerOptions{})
	_, err := reconciler.Search(context.Background(), "anything")
	var fetchErr *articles.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, "boom", fetchErr.Err.Error())
}

func TestSearchFetchTimeout(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	provider := static.New(candidate("slow", "https://www.ptt.cc/bbs/Travel/M.40.A.html")).
		WithBlock(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	reconciler := articles.NewReconciler(store, provider, articles.ReconcilerOptions{
		FetchTimeout: time.Millisecond * 50,
	})

	_, err := reconciler.Search(context.Background(), "slow")
	var fetchErr *articles.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearchSkipsInvalidCandidates(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	recorder := &telemetry.Recorder{}
	provider := static.New(
		candidate("valid before", "https://www.ptt.cc/bbs/Travel/M.50.A.html"),
		candidate("", "https://www.ptt.cc/bbs/Travel/M.51.A.html"),
		candidate("missing link", ""),
		candidate("bad link", "not a url"),
		candidate("valid after", "https://www.ptt.cc/bbs/Travel/M.52.A.html"),
	)
	reconciler := articles.NewReconciler(store, provider, articles.ReconcilerOptions{
		Telemetry: recorder,
	})

	res, err := reconciler.Search(context.Background(), "partial")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, articles.ReconcileReport{Inserted: 2, Skipped: 3}, res.Report)
	require.Len(t, res.Articles, 2)
	require.Equal(t, "valid before", res.Articles[0].Title)
	require.Equal(t, "valid after", res.Articles[1].Title)
	require.Equal(t, 3, recorder.WarningCount("articles:reconciler.candidate"))
	require.Equal(t, map[string]int64{
		"articles:reconciler.inserted":    2,
		"articles:reconciler.incremented": 0,
		"articles:reconciler.skipped":     3,
	}, recorder.Counts)
}

func TestCandidateValidate(t *testing.T) {
	err := candidate("", "https://www.ptt.cc/bbs/Travel/M.60.A.html").Validate()
	var verr *articles.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "title", verr.Field)

	err = candidate("title", "").Validate()
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "link", verr.Field)

	require.NoError(t, candidate("  padded  ", " https://www.ptt.cc/bbs/Travel/M.61.A.html ").Validate())
	article := candidate("  padded  ", " https://www.ptt.cc/bbs/Travel/M.61.A.html ").Article("k")
	require.Equal(t, "padded", article.Title)
	require.Equal(t, "https://www.ptt.cc/bbs/Travel/M.61.A.html", article.Link)
	require.EqualValues(t, 1, article.Count)
}

func TestSearchEmptyKeyword(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	provider := static.New()
	reconciler := articles.NewReconciler(store, provider, articles.ReconcilerOptions{})

	_, err := reconciler.Search(context.Background(), "   ")
	require.ErrorIs(t, err, articles.ErrEmptyKeyword)
	require.EqualValues(t, 0, provider.Calls())
}

func TestSearchEmptyFetch(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	provider := static.New()
	reconciler := articles.NewReconciler(store, provider, articles.ReconcilerOptions{})

	res, err := reconciler.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, res.Articles)
	require.False(t, res.Cached)

	// an empty result is still a miss, the provider is asked again
	_, err = reconciler.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 2, provider.Calls())
}

// racyStore hides the first title lookup for every title, reproducing a
// search that lost the race between its lookup and its insert.
type racyStore struct {
	articles.Store
	mu     sync.Mutex
	hidden map[string]bool
}

func (s *racyStore) FindByTitle(ctx context.Context, title string) (articles.Article, error) {
	s.mu.Lock()
	if !s.hidden[title] {
		s.hidden[title] = true
		s.mu.Unlock()
		return articles.Article{}, articles.ErrArticleNotFound
	}
	s.mu.Unlock()
	return s.Store.FindByTitle(ctx, title)
}

func TestReconcileConstraintFallback(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Insert(ctx, candidate("already there", "https://www.ptt.cc/bbs/Travel/M.70.A.html").Article("k"))
	if err != nil {
		t.Fatal(err)
	}

	recorder := &telemetry.Recorder{}
	racy := &racyStore{Store: store, hidden: map[string]bool{}}
	reconciler := articles.NewReconciler(racy, static.New(), articles.ReconcilerOptions{Telemetry: recorder})

	report, err := reconciler.Reconcile(ctx, "k", []articles.Candidate{
		candidate("already there", "https://www.ptt.cc/bbs/Travel/M.71.A.html"),
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, articles.ReconcileReport{Incremented: 1}, report)
	require.Equal(t, 1, recorder.WarningCount("articles:reconciler.conflict"))

	stored, err := store.FindByTitle(ctx, "already there")
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 2, stored.Count)
	require.Equal(t, "https://www.ptt.cc/bbs/Travel/M.70.A.html", stored.Link)
}

func TestReconcileLinkCollision(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Insert(ctx, candidate("original title", "https://www.ptt.cc/bbs/Travel/M.80.A.html").Article("k"))
	if err != nil {
		t.Fatal(err)
	}

	reconciler := articles.NewReconciler(store, static.New(), articles.ReconcilerOptions{})
	report, err := reconciler.Reconcile(ctx, "k", []articles.Candidate{
		candidate("edited title", "https://www.ptt.cc/bbs/Travel/M.80.A.html"),
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, articles.ReconcileReport{Incremented: 1}, report)

	rows, err := store.FindByKeyword(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, rows, 1)
	require.Equal(t, "original title", rows[0].Title)
	require.EqualValues(t, 2, rows[0].Count)
}

type failingInsertStore struct {
	articles.Store
	err error
}

func (s failingInsertStore) Insert(context.Context, articles.Article) (articles.Article, error) {
	return articles.Article{}, s.err
}

func TestReconcileStoreErrorStops(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Insert(ctx, candidate("seen", "https://www.ptt.cc/bbs/Travel/M.90.A.html").Article("k"))
	if err != nil {
		t.Fatal(err)
	}

	diskFull := errors.New("disk full")
	reconciler := articles.NewReconciler(failingInsertStore{Store: store, err: diskFull}, static.New(), articles.ReconcilerOptions{})
	report, err := reconciler.Reconcile(ctx, "k", []articles.Candidate{
		candidate("seen", "https://www.ptt.cc/bbs/Travel/M.91.A.html"),
		candidate("unseen", "https://www.ptt.cc/bbs/Travel/M.92.A.html"),
		candidate("never reached", "https://www.ptt.cc/bbs/Travel/M.93.A.html"),
	})
	require.ErrorIs(t, err, diskFull)
	require.Equal(t, articles.ReconcileReport{Incremented: 1}, report)

	stored, err := store.FindByTitle(ctx, "seen")
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 2, stored.Count)
}
