package runner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techup/lib/discover"
	"techup/lib/logger"
	"techup/lib/readability"
	"techup/lib/reconcile"
	"techup/lib/store"
	"techup/lib/types"
	"techup/lib/web"
)

type countingSummarizer struct {
	mu    sync.Mutex
	calls int
	fatal bool
}

func (s *countingSummarizer) Summarize(ctx context.Context, content string) types.SummaryOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fatal {
		return types.SummaryOutcome{Kind: types.SummaryFatal, Err: fmt.Errorf("invalid_api_key")}
	}
	return types.SummaryOutcome{Kind: types.Summarized, Summary: types.Summary{
		Summary:  "Summary of: " + content[:min(20, len(content))],
		Keywords: []string{"growth"},
	}}
}

// blogServer serves a listing page at /blog and one article per slug.
func blogServer(t *testing.T, slugs *[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/blog", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(w, `<html><body><a href="/blog/tag/growth">Growth</a>`)
		for _, s := range *slugs {
			fmt.Fprintf(w, `<h2><a href="/blog/2024/%s">%s</a></h2>`, s, s)
		}
		fmt.Fprint(w, `</body></html>`)
	})
	mux.HandleFunc("/blog/2024/", func(w http.ResponseWriter, r *http.Request) {
		slug := filepath.Base(r.URL.Path)
		fmt.Fprintf(w, `<html><body><h1>Post %s about pipeline growth</h1><p>Body of %s.</p></body></html>`, slug, slug)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newPipeline(t *testing.T, dir, blogURL string, sum *countingSummarizer, persistPartial bool) (*Runner, store.Paths) {
	t.Helper()
	catalogPath := filepath.Join(dir, "blogs.json")
	doc := fmt.Sprintf(`{"marketing": {"growth": [{"name": "Test Blog", "url": %q}]}}`, blogURL)
	require.NoError(t, os.WriteFile(catalogPath, []byte(doc), 0o644))

	log := logger.Discard()
	client := web.NewClient(web.Options{Timeout: 5 * time.Second})
	engine := reconcile.New(
		discover.New(client, 10, nil, log),
		readability.NewFetcher(client, 0, log),
		sum, log, reconcile.Options{},
	)
	paths := store.Paths{
		Cache:    filepath.Join(dir, "summary.json"),
		Ledger:   filepath.Join(dir, "scraped_history.json"),
		Rejected: filepath.Join(dir, "rejected.json"),
		Trends:   filepath.Join(dir, "trends.json"),
	}
	return New(store.NewFileStore(paths, log), engine, Options{CatalogPath: catalogPath, PersistPartial: persistPartial}, log), paths
}

func TestPipelineSecondRunIsIdempotent(t *testing.T) {
	slugs := []string{"first", "second"}
	srv := blogServer(t, &slugs)
	dir := t.TempDir()
	sum := &countingSummarizer{}
	r, paths := newPipeline(t, dir, srv.URL+"/blog", sum, false)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.calls)
	firstCache, err := os.ReadFile(paths.Cache)
	require.NoError(t, err)
	firstLedger, err := os.ReadFile(paths.Ledger)
	require.NoError(t, err)

	report, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.calls)
	assert.Equal(t, 2, report.Stats.Reused)

	secondCache, err := os.ReadFile(paths.Cache)
	require.NoError(t, err)
	secondLedger, err := os.ReadFile(paths.Ledger)
	require.NoError(t, err)
	assert.Equal(t, string(firstCache), string(secondCache))
	assert.Equal(t, string(firstLedger), string(secondLedger))
}

func TestPipelineDroppedStoryIsNotResummarized(t *testing.T) {
	slugs := []string{"first", "second"}
	srv := blogServer(t, &slugs)
	dir := t.TempDir()
	sum := &countingSummarizer{}
	r, paths := newPipeline(t, dir, srv.URL+"/blog", sum, false)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	slugs = []string{"second"}
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)

	slugs = []string{"first", "second", "third"}
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.calls)
	fs := store.NewFileStore(paths, logger.Discard())
	state, err := fs.Load(context.Background())
	require.NoError(t, err)
	stories := state.Cache["marketing"]["growth"]
	require.Len(t, stories, 2)
	assert.Equal(t, srv.URL+"/blog/2024/second", stories[0].OriginalURL)
	assert.Equal(t, srv.URL+"/blog/2024/third", stories[1].OriginalURL)
	assert.Equal(t, 3, state.Ledger.Len())
}

func TestPipelineFatalLeavesStoredStateUntouched(t *testing.T) {
	slugs := []string{"first"}
	srv := blogServer(t, &slugs)
	dir := t.TempDir()
	sum := &countingSummarizer{}
	r, paths := newPipeline(t, dir, srv.URL+"/blog", sum, false)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	before, err := os.ReadFile(paths.Ledger)
	require.NoError(t, err)

	slugs = []string{"first", "second"}
	sum.fatal = true
	_, err = r.RunOnce(context.Background())
	require.ErrorIs(t, err, reconcile.ErrFatal)

	after, err := os.ReadFile(paths.Ledger)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}
