// Package analysis derives reader hints from a stored story: the tone of
// its headline and how hard its summary is to read. Nothing here is
// persisted; the hints are computed whenever a story is shown.
package analysis

import (
	"math"
	"strings"
	"unicode"

	"techup/lib/types"
)

type Tone string

const (
	Positive Tone = "Positive"
	Negative Tone = "Negative"
	Neutral  Tone = "Neutral"
)

var (
	positiveWords = wordSet("amazing", "growth", "success", "effective", "powerful", "boost", "win", "improve", "best", "top", "new", "innovative")
	negativeWords = wordSet("mistakes", "avoid", "bad", "fail", "problem", "risk", "warning", "stop", "decline", "worst", "never")
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Sentiment scores the distinct words of text against small positive and
// negative word lists.
func Sentiment(text string) Tone {
	seen := map[string]bool{}
	score := 0
	for _, w := range strings.FieldsFunc(strings.ToLower(text), notWordRune) {
		if seen[w] {
			continue
		}
		seen[w] = true
		switch {
		case positiveWords[w]:
			score++
		case negativeWords[w]:
			score--
		}
	}
	switch {
	case score > 0:
		return Positive
	case score < 0:
		return Negative
	default:
		return Neutral
	}
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// NoGrade is the reading level of a text without words.
const NoGrade = "N/A"

// Grade is the Flesch-Kincaid grade of text. ok is false for a text
// without words.
func Grade(text string) (grade float64, ok bool) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0, false
	}
	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if sentences == 0 {
		sentences = 1
	}
	syllables := 0
	for _, w := range words {
		syllables += Syllables(w)
	}
	n := float64(len(words))
	return 0.39*(n/float64(sentences)) + 11.8*(float64(syllables)/n) - 15.59, true
}

// Syllables estimates the syllables of word by counting vowel groups.
func Syllables(word string) int {
	runes := []rune(strings.ToLower(word))
	count := 0
	for i, r := range runes {
		if isVowel(r) && (i == 0 || !isVowel(runes[i-1])) {
			count++
		}
	}
	if len(runes) > 0 && runes[len(runes)-1] == 'e' {
		count--
	}
	if count <= 0 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouy", r)
}

// ReadingLevel names the school level matching the grade of text.
func ReadingLevel(text string) string {
	grade, ok := Grade(text)
	if !ok {
		return NoGrade
	}
	return Level(int(math.RoundToEven(grade)))
}

func Level(grade int) string {
	switch {
	case grade >= 16:
		return "Post-Graduate"
	case grade >= 13:
		return "College Level"
	case grade >= 9:
		return "High School"
	case grade >= 6:
		return "Middle School"
	default:
		return "Easy to Read"
	}
}

// Annotated is a story with its reader hints, encoded next to the story's
// own fields.
type Annotated struct {
	types.Story
	Tone         Tone   `json:"sentiment"`
	ReadingLevel string `json:"readability"`
}

func Annotate(story types.Story) Annotated {
	return Annotated{Story: story, Tone: Sentiment(story.Headline), ReadingLevel: ReadingLevel(story.Summary)}
}

// AnnotateCache annotates every story of cache, keeping its shape and order.
func AnnotateCache(cache types.Cache) map[string]map[string][]Annotated {
	out := make(map[string]map[string][]Annotated, len(cache))
	for cat, subs := range cache {
		out[cat] = make(map[string][]Annotated, len(subs))
		for sub, stories := range subs {
			list := make([]Annotated, 0, len(stories))
			for _, s := range stories {
				list = append(list, Annotate(s))
			}
			out[cat][sub] = list
		}
	}
	return out
}
