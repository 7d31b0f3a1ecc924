package types

// Article is what the fetcher extracts from an article page.
type Article struct {
	Headline string
	Content  string
	Image    string
}

type FetchKind int

const (
	FetchedArticle FetchKind = iota
	NotAnArticle
	FetchFailed
)

func (k FetchKind) String() string {
	switch k {
	case FetchedArticle:
		return "article"
	case NotAnArticle:
		return "not-an-article"
	case FetchFailed:
		return "fetch-failed"
	default:
		return "unknown"
	}
}

// FetchResult separates "this page is not an article" from "we could not
// load this page"; only the latter is worth retrying soon.
type FetchResult struct {
	Kind    FetchKind
	Article Article
	Err     error
}

// OK reports whether the result carries an article.
func (r FetchResult) OK() bool {
	return r.Kind == FetchedArticle
}

type Summary struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

type SummaryKind int

const (
	Summarized SummaryKind = iota
	// SummaryTransient means this item failed but others may succeed.
	SummaryTransient
	// SummaryFatal means no further call can succeed (bad credentials,
	// exhausted account).
	SummaryFatal
)

func (k SummaryKind) String() string {
	switch k {
	case Summarized:
		return "summarized"
	case SummaryTransient:
		return "transient"
	case SummaryFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type SummaryOutcome struct {
	Kind    SummaryKind
	Summary Summary
	Err     error
}
