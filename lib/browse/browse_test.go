package browse

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techup/lib/types"
)

func testCache() types.Cache {
	return types.Cache{
		"marketing": {"seo": {
			{Headline: "Local search ranking explained", Source: "Moz", OriginalURL: "https://moz.com/blog/2024/local", Summary: "How local ranking works.", Keywords: []string{"seo", "local"}, Date: "May 3, 2024"},
		}},
		"ai": {
			"research": {
				{Headline: "Agents everywhere", Source: "Lab", OriginalURL: "https://lab.example/2024/agents", Summary: "Agents are everywhere now.", Date: "May 2, 2024"},
			},
			"news": {
				{Headline: "A new model", Source: "Lab", OriginalURL: "https://lab.example/2024/model", Date: "May 1, 2024"},
			},
		},
	}
}

func newTestApp(t *testing.T) (*App, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(100, 20)
	return New(screen, testCache()), screen
}

func row(screen tcell.SimulationScreen, y int) string {
	cells, width, _ := screen.GetContents()
	var b strings.Builder
	for x := 0; x < width; x++ {
		if r := cells[y*width+x].Runes; len(r) > 0 {
			b.WriteString(string(r))
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestItemsOrder(t *testing.T) {
	items := Items(testCache())
	require.Len(t, items, 3)
	assert.Equal(t, "news", items[0].Subcategory)
	assert.Equal(t, "research", items[1].Subcategory)
	assert.Equal(t, "marketing", items[2].Category)
}

func TestDrawListsStories(t *testing.T) {
	a, screen := newTestApp(t)
	a.draw()

	assert.Equal(t, "A new model | lab.example | ai/news | May 1, 2024", row(screen, 0))
	assert.Contains(t, row(screen, 1), "Agents everywhere")
	assert.Contains(t, row(screen, 18), "Navigate (1/3)")
}

func TestEnterExpandsSummaryAndKShowsKeywords(t *testing.T) {
	a, screen := newTestApp(t)
	a.handle(key(tcell.KeyDown))
	a.handle(key(tcell.KeyDown))
	a.handle(key(tcell.KeyEnter))
	a.handle(runeKey('k'))
	a.draw()

	assert.Contains(t, row(screen, 2), "Local search ranking explained")
	assert.Equal(t, "  How local ranking works.", row(screen, 3))
	assert.Equal(t, "  Tone: Neutral | Reading level: Easy to Read", row(screen, 4))
	assert.Equal(t, "  Keywords: seo, local", row(screen, 5))
}

func TestOpenUsesSelectedStory(t *testing.T) {
	a, _ := newTestApp(t)
	var opened string
	a.open = func(u string) error { opened = u; return nil }

	a.handle(key(tcell.KeyDown))
	a.handle(runeKey('o'))

	assert.Equal(t, "https://lab.example/2024/agents", opened)
}

func TestFilter(t *testing.T) {
	a, screen := newTestApp(t)

	require.NoError(t, a.Filter("moz|agents"))
	a.draw()
	assert.Len(t, a.items, 2)
	assert.Contains(t, row(screen, 0), "Agents everywhere")
	assert.Contains(t, row(screen, 19), `2 of 3 stories match "moz|agents"`)

	assert.Error(t, a.Filter("("))

	a.handle(runeKey('r'))
	assert.Len(t, a.items, 3)
}

func TestFilterKeyReadsInput(t *testing.T) {
	a, screen := newTestApp(t)
	for _, r := range "modex" {
		screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	screen.InjectKey(tcell.KeyBackspace2, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyBackspace2, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'l', tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	a.handle(runeKey('f'))

	require.Len(t, a.items, 1)
	assert.Equal(t, "A new model", a.items[0].Story.Headline)
}

func TestQuitKeys(t *testing.T) {
	a, _ := newTestApp(t)
	assert.True(t, a.handle(runeKey('q')))
	assert.True(t, a.handle(key(tcell.KeyEscape)))
	assert.False(t, a.handle(key(tcell.KeyUp)))
}

func TestEmptyCache(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(80, 10)
	a := New(screen, types.Cache{})

	assert.False(t, a.handle(key(tcell.KeyEnter)))
	assert.False(t, a.handle(runeKey('o')))
	a.draw()
	assert.Equal(t, "No stories.", row(screen, 0))
}
