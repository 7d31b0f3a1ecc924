package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"techup/lib/filters"
	"techup/lib/logger"
	"techup/lib/types"
)

// ErrFatal marks a run aborted because the summarizer cannot work at all.
var ErrFatal = errors.New("fatal summarizer failure")

// DefaultRejectTTL is how long a page confirmed not to be an article is
// left alone.
const DefaultRejectTTL = 7 * 24 * time.Hour

type Discoverer interface {
	Discover(ctx context.Context, sourceURL string) ([]string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, articleURL string) types.FetchResult
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) types.SummaryOutcome
}

type Options struct {
	// Concurrency is how many new links of one source are fetched and
	// summarized at once. 1 keeps everything sequential.
	Concurrency int
	RejectTTL   time.Duration
	// DedupeHeadlines skips summarizing an article whose headline matches a
	// story already accepted in this run.
	DedupeHeadlines bool
	Now             func() time.Time
}

type Engine struct {
	discoverer Discoverer
	fetcher    Fetcher
	summarizer Summarizer
	log        *logger.Logger
	opts       Options
}

func New(d Discoverer, f Fetcher, s Summarizer, log *logger.Logger, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.RejectTTL <= 0 {
		opts.RejectTTL = DefaultRejectTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{discoverer: d, fetcher: f, summarizer: s, log: log, opts: opts}
}

type Stats struct {
	Sources         int
	SourceErrors    int
	Discovered      int
	Reused          int
	Known           int
	Rejected        int
	Summarized      int
	NotArticles     int
	Duplicates      int
	FetchFailures   int
	SummaryFailures int
	PrunedRejected  int
}

func (s Stats) String() string {
	return fmt.Sprintf("sources=%d source_errors=%d discovered=%d reused=%d known=%d rejected=%d summarized=%d not_articles=%d duplicates=%d fetch_failures=%d summary_failures=%d",
		s.Sources, s.SourceErrors, s.Discovered, s.Reused, s.Known, s.Rejected, s.Summarized, s.NotArticles, s.Duplicates, s.FetchFailures, s.SummaryFailures)
}

// Result is the state a run produced. When Aborted is set it only covers
// the sources handled before the abort.
type Result struct {
	Cache         types.Cache
	Ledger        *types.Ledger
	Rejected      types.Rejected
	Stats         Stats
	FailedSources []string
	Aborted       bool
}

// Run rebuilds the cache for every source of catalog. prev is not modified.
//
// On a fatal summarizer outcome or context cancellation Run stops starting
// network calls and returns the partial Result together with an error; an
// error wrapping ErrFatal means the credentials or account are unusable.
func (e *Engine) Run(ctx context.Context, catalog types.Catalog, prev types.State) (*Result, error) {
	now := e.opts.Now()
	oldIndex := Index(prev.Cache)

	res := &Result{
		Cache:    NewCacheFor(catalog),
		Ledger:   prev.Ledger.Clone(),
		Rejected: prev.Rejected.Clone(),
	}
	res.Stats.PrunedRejected = res.Rejected.Prune(now, e.opts.RejectTTL)

	headlines := &headlineSet{}
	placed := map[string]bool{}

	for _, cat := range catalog.Categories {
		for _, sub := range cat.Subcategories {
			e.log.Info("Processing [%s -> %s]", cat.Name, sub.Name)
			for _, blog := range sub.Blogs {
				if err := ctx.Err(); err != nil {
					res.Aborted = true
					return res, fmt.Errorf("run cancelled: %w", err)
				}
				res.Stats.Sources++
				src := source{blog: blog, oldIndex: oldIndex, placed: placed, headlines: headlines, now: now}
				stories, err := e.reconcileSource(ctx, src, res)
				res.Cache[cat.Name][sub.Name] = append(res.Cache[cat.Name][sub.Name], stories...)
				if err != nil {
					res.Aborted = true
					e.log.Error("Aborting run at %s: %v", blog.Name, err)
					return res, err
				}
			}
		}
	}

	e.log.Info("Reconciliation finished: %s", res.Stats)
	return res, nil
}

type source struct {
	blog     types.Blog
	oldIndex map[string]types.Story
	// placed holds the URLs already in the new cache. A link seen again
	// under a later source is skipped so each story appears once.
	placed    map[string]bool
	headlines *headlineSet
	now       time.Time
}

type outcomeKind int

const (
	notAttempted outcomeKind = iota
	gotStory
	notArticle
	duplicate
	fetchFailed
	summaryFailed
	fatal
)

type outcome struct {
	kind  outcomeKind
	story types.Story
	err   error
}

func (e *Engine) reconcileSource(ctx context.Context, src source, res *Result) ([]types.Story, error) {
	links, err := e.discoverer.Discover(ctx, src.blog.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run cancelled: %w", ctx.Err())
		}
		e.log.Warning("Error processing %s (%s): %v", src.blog.Name, src.blog.URL, err)
		res.Stats.SourceErrors++
		res.FailedSources = append(res.FailedSources, src.blog.Name)
		return nil, nil
	}
	links = dedupe(links)
	res.Stats.Discovered += len(links)

	decisions := make([]Decision, len(links))
	var work []int
	for i, link := range links {
		if src.placed[link] {
			decisions[i] = Known
			continue
		}
		decisions[i] = Classify(link, src.oldIndex, res.Ledger, res.Rejected)
		switch decisions[i] {
		case Process:
			work = append(work, i)
		case Reuse:
			src.headlines.add(src.oldIndex[link].Headline)
		}
	}

	outcomes := make([]outcome, len(links))
	runErr := e.processLinks(ctx, src, links, work, outcomes)

	var stories []types.Story
	for i, link := range links {
		switch decisions[i] {
		case Reuse:
			stories = append(stories, src.oldIndex[link])
			src.placed[link] = true
			res.Stats.Reused++
		case Known:
			res.Stats.Known++
		case Rejected:
			res.Stats.Rejected++
		case Process:
			o := outcomes[i]
			switch o.kind {
			case gotStory:
				stories = append(stories, o.story)
				src.placed[link] = true
				res.Ledger.Add(link)
				res.Stats.Summarized++
				e.log.Info("  - Summarized and added to history: %s", link)
			case notArticle:
				res.Rejected[link] = src.now
				res.Stats.NotArticles++
			case duplicate:
				res.Rejected[link] = src.now
				res.Stats.Duplicates++
			case fetchFailed:
				res.Stats.FetchFailures++
			case summaryFailed:
				res.Stats.SummaryFailures++
			}
		}
	}
	return stories, runErr
}

func (e *Engine) processLinks(ctx context.Context, src source, links []string, work []int, outcomes []outcome) error {
	if len(work) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, i := range work {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			o := e.processLink(gctx, src, links[i])
			outcomes[i] = o
			if o.kind == fatal {
				return fmt.Errorf("%w: %v", ErrFatal, o.err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled: %w", err)
	}
	return nil
}

func (e *Engine) processLink(ctx context.Context, src source, link string) outcome {
	e.log.Info("+ Found new article: %s", link)

	fetched := e.fetcher.Fetch(ctx, link)
	switch fetched.Kind {
	case types.NotAnArticle:
		return outcome{kind: notArticle}
	case types.FetchFailed:
		return outcome{kind: fetchFailed, err: fetched.Err}
	}
	article := fetched.Article

	if e.opts.DedupeHeadlines {
		if !src.headlines.claim(article.Headline) {
			e.log.Info("Skipping similar headline %q at %s", article.Headline, link)
			return outcome{kind: duplicate}
		}
	}

	summarized := e.summarizer.Summarize(ctx, article.Content)
	switch summarized.Kind {
	case types.SummaryFatal:
		return outcome{kind: fatal, err: summarized.Err}
	case types.SummaryTransient:
		if e.opts.DedupeHeadlines {
			src.headlines.release(article.Headline)
		}
		e.log.Warning("Summarization failed for %s: %v", link, summarized.Err)
		return outcome{kind: summaryFailed, err: summarized.Err}
	}

	return outcome{kind: gotStory, story: NewStory(src.blog, link, article, summarized.Summary, src.now)}
}

func dedupe(links []string) []string {
	seen := make(map[string]bool, len(links))
	out := links[:0:0]
	for _, l := range links {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// headlineSet holds the headlines of stories accepted so far in a run.
type headlineSet struct {
	mu        sync.Mutex
	headlines []string
}

func (h *headlineSet) add(headline string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.headlines = append(h.headlines, headline)
}

// claim adds headline unless a similar one is already present.
func (h *headlineSet) claim(headline string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, existing := range h.headlines {
		if filters.IsTitleSimilar(existing, headline) {
			return false
		}
	}
	h.headlines = append(h.headlines, headline)
	return true
}

func (h *headlineSet) release(headline string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.headlines {
		if existing == headline {
			h.headlines = append(h.headlines[:i], h.headlines[i+1:]...)
			return
		}
	}
}
