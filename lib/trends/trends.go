// Package trends tracks the most frequent headline words per source and how
// they moved since the previous run.
package trends

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"techup/lib/types"
)

const (
	TopN       = 5
	minWordLen = 4

	New    = "new"
	Up     = "up"
	Down   = "down"
	Stable = "stable"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a an the and but if or because as what which is are was were be been being
		have has had do does did for with about against between into through during before after above below
		to from up down in out on off over under again further then once here there when where why how all any
		both each few more most other some such no nor not only own same so than too very s t can will just don
		should now d ll m o re ve y ain aren couldn didn doesn hadn hasn haven isn ma mightn mustn needn shan
		shouldn wasn weren won wouldn your b2b marketing content you of at by its vs`) {
		stopWords[w] = true
	}
}

// Count tallies the headline words of stories that are not stop words and
// have at least four letters.
func Count(stories []types.Story) map[string]int {
	counts := map[string]int{}
	for _, s := range stories {
		for _, w := range Words(s.Headline) {
			counts[w]++
		}
	}
	return counts
}

func Words(headline string) []string {
	var words []string
	for _, w := range wordRe.FindAllString(strings.ToLower(headline), -1) {
		if stopWords[w] || utf8.RuneCountInString(w) < minWordLen {
			continue
		}
		words = append(words, w)
	}
	return words
}

// Top returns the TopN most frequent words labelled against previous.
// Ties keep the order in which the words first appeared in stories.
func Top(stories []types.Story, counts, previous map[string]int) []types.KeywordTrend {
	var order []string
	seen := map[string]bool{}
	for _, s := range stories {
		for _, w := range Words(s.Headline) {
			if !seen[w] {
				seen[w] = true
				order = append(order, w)
			}
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > TopN {
		order = order[:TopN]
	}

	top := make([]types.KeywordTrend, 0, len(order))
	for _, w := range order {
		top = append(top, types.KeywordTrend{Keyword: w, Count: counts[w], Trend: label(counts[w], previous, w)})
	}
	return top
}

func label(count int, previous map[string]int, word string) string {
	prev, ok := previous[word]
	switch {
	case !ok:
		return New
	case count > prev:
		return Up
	case count < prev:
		return Down
	default:
		return Stable
	}
}

// Compute derives the trends of every source from the live cache. Sources
// without live stories are left out.
func Compute(cache types.Cache, previous types.Trends) types.Trends {
	bySource := map[string][]types.Story{}
	for _, cat := range sortedKeys(cache) {
		subs := cache[cat]
		for _, sub := range sortedKeys(subs) {
			for _, s := range subs[sub] {
				bySource[s.Source] = append(bySource[s.Source], s)
			}
		}
	}

	out := types.Trends{}
	for source, stories := range bySource {
		counts := Count(stories)
		if len(counts) == 0 {
			continue
		}
		out[source] = types.SourceTrends{
			Counts: counts,
			Top:    Top(stories, counts, previous[source].Counts),
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
