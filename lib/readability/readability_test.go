package readability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techup/lib/logger"
	"techup/lib/types"
	"techup/lib/web"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Ignored title</title>
  <meta property="og:image" content="/images/cover.png">
</head>
<body>
  <nav><p>   </p></nav>
  <h1>  How We Doubled
     Our Pipeline | Animalz </h1>
  <h1>Second heading</h1>
  <p>First paragraph.</p>
  <p>Second   paragraph with <a href="#">a link</a>.</p>
</body>
</html>`

func newFetcher(t *testing.T, maxContent int, handler http.HandlerFunc) (*Fetcher, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFetcher(web.NewClient(web.Options{}), maxContent, logger.Discard()), srv.URL
}

func TestFetchExtractsArticle(t *testing.T) {
	f, base := newFetcher(t, 0, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	})

	res := f.Fetch(context.Background(), base+"/blog/post")
	require.Equal(t, types.FetchedArticle, res.Kind)
	require.True(t, res.OK())
	assert.Equal(t, "How We Doubled Our Pipeline | Animalz", res.Article.Headline)
	assert.Equal(t, "First paragraph. Second paragraph with a link.", res.Article.Content)
	assert.Equal(t, base+"/images/cover.png", res.Article.Image)
}

func TestFetchWithoutHeadlineIsNotAnArticle(t *testing.T) {
	f, base := newFetcher(t, 0, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Just a paragraph on an index page.</p></body></html>`)
	})

	res := f.Fetch(context.Background(), base+"/blog/")
	assert.Equal(t, types.NotAnArticle, res.Kind)
	assert.False(t, res.OK())
}

func TestFetchWithoutParagraphsIsNotAnArticle(t *testing.T) {
	f, base := newFetcher(t, 0, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Archive</h1><ul><li>x</li></ul></body></html>`)
	})

	res := f.Fetch(context.Background(), base+"/blog/archive")
	assert.Equal(t, types.NotAnArticle, res.Kind)
}

func TestFetchMissingPageIsNotAnArticle(t *testing.T) {
	f, base := newFetcher(t, 0, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	res := f.Fetch(context.Background(), base+"/blog/deleted")
	assert.Equal(t, types.NotAnArticle, res.Kind)
	assert.Error(t, res.Err)
}

func TestFetchServerErrorIsFetchFailure(t *testing.T) {
	f, base := newFetcher(t, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	res := f.Fetch(context.Background(), base+"/blog/post")
	assert.Equal(t, types.FetchFailed, res.Kind)
	assert.Error(t, res.Err)
}

func TestFetchTruncatesContent(t *testing.T) {
	long := strings.Repeat("é", 50)
	f, base := newFetcher(t, 20, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><h1>Title</h1><p>%s</p></body></html>`, long)
	})

	res := f.Fetch(context.Background(), base+"/blog/post")
	require.True(t, res.OK())
	assert.Equal(t, 20, utf8.RuneCountInString(res.Article.Content))
}

func TestExtractWithoutImage(t *testing.T) {
	a, err := Extract("https://example.com/blog/x", []byte(`<h1>T</h1><p>Body</p>`), 100)
	require.NoError(t, err)
	assert.Empty(t, a.Image)
	assert.Equal(t, "T", a.Headline)
	assert.Equal(t, "Body", a.Content)
}

func TestExtractKeepsWholeHeading(t *testing.T) {
	page := `<html><body>
<h1>Kubernetes 1.30 -
  What's new for operators</h1>
<h2>Release notes | Platform team</h2>
<p>Body</p></body></html>`

	a, err := Extract("https://example.com/blog/k8s", []byte(page), 100)
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes 1.30 - What's new for operators", a.Headline)
}
