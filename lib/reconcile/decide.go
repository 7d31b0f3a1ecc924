// Package reconcile rebuilds the live story cache from the previous cache,
// the permanent ledger of summarized URLs and freshly discovered links.
//
// Runs must not overlap: the engine assumes it is the only writer of the
// cache and ledger for the duration of a run. Serializing runs is the job
// of whatever triggers them (see lib/schedule).
package reconcile

import (
	"net/url"
	"strings"
	"time"

	"techup/lib/types"
)

// Decision is what happens to one discovered link.
type Decision int

const (
	// Reuse carries the previous Story forward unchanged.
	Reuse Decision = iota
	// Known links were summarized once but are not live in the old cache.
	// They are never summarized again.
	Known
	// Rejected links were recently confirmed not to be articles.
	Rejected
	// Process means fetch and summarize.
	Process
)

func (d Decision) String() string {
	switch d {
	case Reuse:
		return "reuse"
	case Known:
		return "known"
	case Rejected:
		return "rejected"
	case Process:
		return "process"
	default:
		return "unknown"
	}
}

// Index flattens a cache into originalUrl -> Story.
func Index(cache types.Cache) map[string]types.Story {
	index := map[string]types.Story{}
	for _, subs := range cache {
		for _, stories := range subs {
			for _, story := range stories {
				index[story.OriginalURL] = story
			}
		}
	}
	return index
}

// NewCacheFor returns a cache with an empty story list for every
// category and subcategory of catalog.
func NewCacheFor(catalog types.Catalog) types.Cache {
	return catalog.Skeleton()
}

// Classify applies the reuse / known / rejected / process checks in that
// order.
func Classify(link string, oldIndex map[string]types.Story, ledger *types.Ledger, rejected types.Rejected) Decision {
	if _, ok := oldIndex[link]; ok {
		return Reuse
	}
	if ledger.Has(link) {
		return Known
	}
	if _, ok := rejected[link]; ok {
		return Rejected
	}
	return Process
}

const placeholderImage = "https://placehold.co/600x400/1a2b3c/ffffff?text="

// PlaceholderImage is used for stories whose page declares no preview
// image.
func PlaceholderImage(blogName string) string {
	return placeholderImage + strings.ReplaceAll(url.QueryEscape(blogName), "+", "%20")
}

// NewStory builds the Story for a freshly summarized article.
func NewStory(blog types.Blog, link string, article types.Article, summary types.Summary, now time.Time) types.Story {
	image := article.Image
	if image == "" {
		image = PlaceholderImage(blog.Name)
	}
	keywords := summary.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return types.Story{
		Image:       image,
		Headline:    article.Headline,
		Summary:     summary.Summary,
		Keywords:    keywords,
		Source:      blog.Name,
		Date:        now.Format(types.StoryDateLayout),
		OriginalURL: link,
		FullContent: article.Content,
	}
}
