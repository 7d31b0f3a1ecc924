package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techup/lib/types"
)

func TestSentiment(t *testing.T) {
	cases := map[string]Tone{
		"Top 10 growth hacks for SaaS":          Positive,
		"Avoid these onboarding mistakes":       Negative,
		"The best way to make mistakes":         Neutral,
		"Local search ranking explained":        Neutral,
		"Stop! Stop! Stop, it's the best news":  Neutral,
		"Never fail at pricing: a new approach": Negative,
		"":                                      Neutral,
	}
	for headline, want := range cases {
		assert.Equal(t, want, Sentiment(headline), headline)
	}
}

func TestSyllables(t *testing.T) {
	cases := map[string]int{
		"the":              1,
		"cat":              1,
		"local":            2,
		"comprehensive":    4,
		"interoperability": 8,
		"e":                1,
		"Rhythm":           1,
	}
	for word, want := range cases {
		assert.Equal(t, want, Syllables(word), word)
	}
}

func TestGrade(t *testing.T) {
	grade, ok := Grade("The cat sat.")
	require.True(t, ok)
	assert.InDelta(t, -2.62, grade, 0.001)

	_, ok = Grade("   ")
	assert.False(t, ok)
}

func TestReadingLevel(t *testing.T) {
	assert.Equal(t, "Easy to Read", ReadingLevel("How local ranking works."))
	assert.Equal(t, "Post-Graduate", ReadingLevel("Organizational interoperability necessitates comprehensive institutional accountability."))
	assert.Equal(t, NoGrade, ReadingLevel(""))
}

func TestLevel(t *testing.T) {
	cases := map[int]string{
		20: "Post-Graduate",
		16: "Post-Graduate",
		15: "College Level",
		13: "College Level",
		12: "High School",
		9:  "High School",
		8:  "Middle School",
		6:  "Middle School",
		5:  "Easy to Read",
		-3: "Easy to Read",
	}
	for grade, want := range cases {
		assert.Equal(t, want, Level(grade), grade)
	}
}

func TestAnnotateCacheKeepsStoryFields(t *testing.T) {
	cache := types.Cache{"ai": {"news": {{
		Headline:    "A powerful new model",
		Summary:     "How local ranking works.",
		OriginalURL: "https://lab.example/2024/model",
		Keywords:    []string{"models"},
	}}}}

	raw, err := json.Marshal(AnnotateCache(cache))
	require.NoError(t, err)

	var got map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	story := got["ai"]["news"][0]
	assert.Equal(t, "https://lab.example/2024/model", story["originalUrl"])
	assert.Equal(t, "A powerful new model", story["headline"])
	assert.Equal(t, "Positive", story["sentiment"])
	assert.Equal(t, "Easy to Read", story["readability"])
}
