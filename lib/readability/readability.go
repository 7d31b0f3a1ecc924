package readability

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"techup/lib/logger"
	"techup/lib/types"
	"techup/lib/web"
)

// DefaultMaxContentLength bounds the text sent for summarization.
const DefaultMaxContentLength = 3000

type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Fetcher struct {
	web        Getter
	maxContent int
	log        *logger.Logger
}

func NewFetcher(client Getter, maxContent int, log *logger.Logger) *Fetcher {
	if maxContent <= 0 {
		maxContent = DefaultMaxContentLength
	}
	return &Fetcher{web: client, maxContent: maxContent, log: log}
}

// Fetch loads articleURL and extracts its headline, body text and preview
// image. A page without a headline or body is NotAnArticle; a page that
// could not be loaded is FetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, articleURL string) types.FetchResult {
	body, err := f.web.Get(ctx, articleURL)
	if err != nil {
		var statusErr *web.StatusError
		if errors.As(err, &statusErr) && statusErr.Gone() {
			f.log.Info("Article %s is gone (%d)", articleURL, statusErr.StatusCode)
			return types.FetchResult{Kind: types.NotAnArticle, Err: err}
		}
		f.log.Warning("Failed to fetch %s: %v", articleURL, err)
		return types.FetchResult{Kind: types.FetchFailed, Err: err}
	}

	article, err := Extract(articleURL, body, f.maxContent)
	if err != nil {
		f.log.Warning("Failed to parse %s: %v", articleURL, err)
		return types.FetchResult{Kind: types.FetchFailed, Err: err}
	}
	if article.Headline == "" || article.Content == "" {
		f.log.Info("Could not find headline/content for %s", articleURL)
		return types.FetchResult{Kind: types.NotAnArticle}
	}
	return types.FetchResult{Kind: types.FetchedArticle, Article: article}
}

// Extract pulls the first h1, the paragraph text (truncated to maxContent
// runes) and the og:image of an article page.
func Extract(articleURL string, body []byte, maxContent int) (types.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.Article{}, err
	}

	headline := strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	content := truncate(strings.Join(paragraphs, " "), maxContent)

	var image string
	if src, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		image = absolute(articleURL, strings.TrimSpace(src))
	}

	return types.Article{Headline: headline, Content: content, Image: image}, nil
}

func absolute(pageURL, ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	abs, ok := web.Resolve(base, ref)
	if !ok {
		return ""
	}
	return abs
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}
