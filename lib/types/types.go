package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Blog is one entry of the source catalog.
type Blog struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Subcategory struct {
	Name  string
	Blogs []Blog
}

type Category struct {
	Name          string
	Subcategories []Subcategory
}

// Catalog is the category -> subcategory -> blogs document, kept in
// document order so sources are processed the way they were written.
type Catalog struct {
	Categories []Category
}

func (c Catalog) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, cat := range c.Categories {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(&b, cat.Name)
		b.WriteByte('{')
		for j, sub := range cat.Subcategories {
			if j > 0 {
				b.WriteByte(',')
			}
			writeKey(&b, sub.Name)
			blogs := sub.Blogs
			if blogs == nil {
				blogs = []Blog{}
			}
			raw, err := json.Marshal(blogs)
			if err != nil {
				return nil, err
			}
			b.Write(raw)
		}
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeKey(b *bytes.Buffer, key string) {
	raw, _ := json.Marshal(key)
	b.Write(raw)
	b.WriteByte(':')
}

func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	var categories []Category
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return err
		}
		cat := Category{Name: name}
		if err := expectDelim(dec, '{'); err != nil {
			return fmt.Errorf("category %q: %w", name, err)
		}
		for dec.More() {
			subName, err := readKey(dec)
			if err != nil {
				return err
			}
			var blogs []Blog
			if err := dec.Decode(&blogs); err != nil {
				return fmt.Errorf("subcategory %q/%q: %w", name, subName, err)
			}
			cat.Subcategories = append(cat.Subcategories, Subcategory{Name: subName, Blogs: blogs})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		categories = append(categories, cat)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	c.Categories = categories
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// Story is one summarized article. Stories are never edited after creation;
// a still-live story is carried into the next cache as is.
type Story struct {
	Image       string   `json:"image"`
	Headline    string   `json:"headline"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	Source      string   `json:"source"`
	Date        string   `json:"date"`
	OriginalURL string   `json:"originalUrl"`
	FullContent string   `json:"fullContent"`
}

// StoryDateLayout is the date stamp format of Story.Date.
const StoryDateLayout = "Jan 2, 2006"

// Cache is category -> subcategory -> stories, the served view.
type Cache map[string]map[string][]Story

// Skeleton returns a cache with an empty list for every catalog
// subcategory.
func (c Catalog) Skeleton() Cache {
	cache := Cache{}
	for _, cat := range c.Categories {
		subs := cache[cat.Name]
		if subs == nil {
			subs = map[string][]Story{}
			cache[cat.Name] = subs
		}
		for _, sub := range cat.Subcategories {
			if subs[sub.Name] == nil {
				subs[sub.Name] = []Story{}
			}
		}
	}
	return cache
}

func (c Cache) Len() int {
	n := 0
	for _, subs := range c {
		for _, stories := range subs {
			n += len(stories)
		}
	}
	return n
}

// Ledger is the permanent set of URLs that were summarized once. It only
// grows.
type Ledger struct {
	order []string
	set   map[string]struct{}
}

func NewLedger(urls ...string) *Ledger {
	l := &Ledger{set: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		l.Add(u)
	}
	return l
}

func (l *Ledger) Has(url string) bool {
	if l == nil {
		return false
	}
	_, ok := l.set[url]
	return ok
}

// Add reports whether url was not in the ledger before.
func (l *Ledger) Add(url string) bool {
	if l.set == nil {
		l.set = map[string]struct{}{}
	}
	if _, ok := l.set[url]; ok {
		return false
	}
	l.set[url] = struct{}{}
	l.order = append(l.order, url)
	return true
}

func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// URLs returns the ledger in insertion order.
func (l *Ledger) URLs() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

func (l *Ledger) Clone() *Ledger {
	return NewLedger(l.URLs()...)
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	urls := l.URLs()
	if urls == nil {
		urls = []string{}
	}
	return json.Marshal(urls)
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}
	*l = *NewLedger(urls...)
	return nil
}

// Rejected remembers URLs that were confirmed not to be articles, with the
// time they were first rejected. Entries expire so that pages which later
// turn into articles get another chance.
type Rejected map[string]time.Time

// Prune drops entries older than ttl and returns how many were dropped.
func (r Rejected) Prune(now time.Time, ttl time.Duration) int {
	n := 0
	for url, at := range r {
		if now.Sub(at) >= ttl {
			delete(r, url)
			n++
		}
	}
	return n
}

func (r Rejected) Clone() Rejected {
	out := make(Rejected, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// KeywordTrend is one of the top headline keywords of a source.
type KeywordTrend struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
	Trend   string `json:"trend"`
}

// SourceTrends keeps a source's headline word counts of the last run and
// the top keywords derived from them.
type SourceTrends struct {
	Counts map[string]int `json:"counts"`
	Top    []KeywordTrend `json:"top"`
}

// Trends is keyed by source (blog) name.
type Trends map[string]SourceTrends

// State is everything a run reads at start and writes at the end.
type State struct {
	Cache    Cache
	Ledger   *Ledger
	Rejected Rejected
	Trends   Trends
}

// EmptyState is the state of a first run.
func EmptyState() State {
	return State{
		Cache:    Cache{},
		Ledger:   NewLedger(),
		Rejected: Rejected{},
		Trends:   Trends{},
	}
}
