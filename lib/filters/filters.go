package filters

import (
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// ArticleMarkers are path fragments that listing pages use for links to
// individual posts.
var ArticleMarkers = []string{"/202", "/blog/", "/news/", "/article/", "/insights/", "/perspectives/"}

// HasArticleMarker reports whether link looks like it points at a post.
func HasArticleMarker(link string) bool {
	for _, marker := range ArticleMarkers {
		if strings.Contains(link, marker) {
			return true
		}
	}
	return false
}

var (
	paginationPath = regexp.MustCompile(`/page/\d+/?$`)
	indexSegments  = []string{"tag", "tags", "category", "categories", "author", "authors", "topic", "topics", "archive", "archives", "feed", "rss", "search"}
	pageParams     = []string{"page", "paged", "offset"}
)

// IsNonArticleURL reports links that are listing pages rather than posts:
// pagination, tag/category/author indexes and feeds.
func IsNonArticleURL(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	path := strings.ToLower(u.Path)
	if paginationPath.MatchString(path) {
		return true
	}
	q := u.Query()
	for _, p := range pageParams {
		if q.Get(p) != "" {
			return true
		}
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, seg := range segments {
		if slices.Contains(indexSegments, seg) {
			return true
		}
	}
	// WordPress default permalinks, e.g. /blog/?p=123
	if q.Get("p") != "" {
		return false
	}
	// The bare section page itself, e.g. /blog/ or /news
	if len(segments) == 1 && slices.Contains([]string{"blog", "news", "article", "articles", "insights", "perspectives"}, segments[0]) {
		return true
	}
	return false
}

// IsGoodHost reports whether link is not on one of the skipped hosts.
func IsGoodHost(link string, skippableHosts []string) bool {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsedURL.Hostname())
	for _, h := range skippableHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return false
		}
	}
	return true
}

// cropAt cuts s at marker when enough of a title precedes it.
func cropAt(s, marker string) string {
	if pos := strings.Index(s, marker); pos >= 15 {
		return s[:pos]
	}
	return s
}

// CleanTitle collapses whitespace and strips trailing " - Site name" style
// suffixes.
func CleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = cropAt(s, " – ")
	s = cropAt(s, " - ")
	s = cropAt(s, " | ")
	return strings.TrimSpace(s)
}

// SimilarityThreshold is the Levenshtein similarity above which two cleaned
// headlines are taken to be the same article.
const SimilarityThreshold = 0.9

// IsTitleSimilar compares two headlines after cleaning and lower-casing.
func IsTitleSimilar(title1, title2 string) bool {
	a := strings.ToLower(CleanTitle(title1))
	b := strings.ToLower(CleanTitle(title2))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	// Short titles collide too easily.
	if min(len(a), len(b)) < 20 {
		return false
	}
	lenDiff := len(a) - len(b)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > 10 {
		return false
	}
	return strutil.Similarity(a, b, metrics.NewLevenshtein()) >= SimilarityThreshold
}
