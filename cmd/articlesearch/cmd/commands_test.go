package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"articlesearch-backend/services/articles"
	"articlesearch-backend/services/scraper/ptt"

	"github.com/stretchr/testify/require"
)

const boardPage = `<html><body>
<div class="btn-group btn-group-paging"></div>
<div class="r-list-container">
	<div class="r-ent">
		<div class="title"><a href="/bbs/Travel/M.1700000001.A.001.html">[遊記] 京都 紅葉季</a></div>
		<div class="meta"><div class="author">alice</div></div>
	</div>
	<div class="r-ent">
		<div class="title"><a href="/bbs/Travel/M.1700000002.A.002.html">[問題] 大阪 住宿 推薦</a></div>
		<div class="meta"><div class="author">carol</div></div>
	</div>
</div>
</body></html>`

func newBoardServer(t testing.TB) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bbs/Travel/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write([]byte(boardPage))
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t testing.TB, dir, baseURL string) string {
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(fmt.Sprintf(`{
		database: { driver: "sqlite", sqlite: { file: %q } },
		scraper: { base_url: %q, board: "Travel", pages: 1 },
		search: { fetch_timeout: 5 },
	}`, filepath.Join(dir, "articlesearch.db"), baseURL)), 0600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t testing.TB, args ...string) (string, error) {
	fetchFromFile = ""
	dumpHttp = ""
	t.Cleanup(func() {
		ptt.SetRestyDumpOutput(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	dir := t.TempDir()
	server := newBoardServer(t)
	configFile := writeConfig(t, dir, server.URL)

	out, err := run(t, "--config", configFile, "search", "kyoto")
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, out, "[遊記] 京都 紅葉季")
	require.Contains(t, out, "[問題] 大阪 住宿 推薦")
	require.Contains(t, out, `2 articles for "kyoto" (inserted 2, incremented 0, skipped 0)`)

	out, err = run(t, "--config", configFile, "search", "kyoto")
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, out, `2 articles for "kyoto" (cached)`)
}

func TestSearchCommandDumpsHttp(t *testing.T) {
	dir := t.TempDir()
	server := newBoardServer(t)
	configFile := writeConfig(t, dir, server.URL)
	dumpDir := filepath.Join(dir, "dump")

	_, err := run(t, "--config", configFile, "--dump-http", dumpDir, "search", "osaka")
	if err != nil {
		t.Fatal(err)
	}

	contents, err := os.ReadFile(filepath.Join(dumpDir, "1"))
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, string(contents), "/bbs/Travel/index.html")
	require.Contains(t, string(contents), "[遊記] 京都 紅葉季")
}

func TestSearchCommandFetchFailure(t *testing.T) {
	dir := t.TempDir()
	server := newBoardServer(t)
	configFile := writeConfig(t, dir, server.URL+"/missing")

	_, err := run(t, "--config", configFile, "search", "kyoto")
	var fetchErr *articles.FetchError
	require.True(t, errors.As(err, &fetchErr), "unexpected error: %v", err)
}

func TestFetchCommandFromFile(t *testing.T) {
	dir := t.TempDir()
	configFile := writeConfig(t, dir, "http://127.0.0.1:1")

	candidatesFile := filepath.Join(dir, "candidates.json5")
	err := os.WriteFile(candidatesFile, []byte(`[
		{ source: "seed", link: "https://www.ptt.cc/bbs/Travel/M.1.A.html", title: "奈良 小鹿" },
		{ source: "seed", link: "not a url", title: "broken" },
	]`), 0600)
	if err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", configFile, "fetch", "--from-file", candidatesFile)
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, out, "奈良 小鹿")
	require.Contains(t, out, "2 candidates")
	require.NoFileExists(t, filepath.Join(dir, "articlesearch.db"))
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	configFile := writeConfig(t, dir, "http://127.0.0.1:1")

	_, err := run(t, "--config", configFile, "migrate")
	if err != nil {
		t.Fatal(err)
	}
	require.FileExists(t, filepath.Join(dir, "articlesearch.db"))
}
