// Package browse is a terminal reader for the story cache.
package browse

import (
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"techup/lib/analysis"
	"techup/lib/types"
	"techup/lib/web"
)

// Item is one story with the place it is listed under.
type Item struct {
	Category    string
	Subcategory string
	Story       types.Story
}

// Items flattens cache in category and subcategory name order, keeping the
// story order of each list.
func Items(cache types.Cache) []Item {
	var items []Item
	for _, cat := range sortedKeys(cache) {
		subs := cache[cat]
		for _, sub := range sortedKeys(subs) {
			for _, s := range subs[sub] {
				items = append(items, Item{Category: cat, Subcategory: sub, Story: s})
			}
		}
	}
	return items
}

type App struct {
	screen        tcell.Screen
	all           []Item
	items         []Item
	selectedIdx   int
	currentPage   int
	itemsPerPage  int
	expanded      map[string]bool
	showKeywords  map[string]bool
	statusMessage string
	open          func(url string) error
}

// New builds a reader over an initialized screen.
func New(screen tcell.Screen, cache types.Cache) *App {
	items := Items(cache)
	return &App{
		screen:       screen,
		all:          items,
		items:        items,
		itemsPerPage: 10,
		expanded:     map[string]bool{},
		showKeywords: map[string]bool{},
		open:         OpenBrowser,
	}
}

// Run draws and handles key presses until the user quits.
func (a *App) Run() error {
	for {
		a.draw()
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if a.handle(ev) {
			return nil
		}
	}
}

func (a *App) selected() (Item, bool) {
	if len(a.items) == 0 {
		return Item{}, false
	}
	return a.items[a.selectedIdx], true
}

func (a *App) lastOnPage() int {
	end := (a.currentPage+1)*a.itemsPerPage - 1
	if end > len(a.items)-1 {
		end = len(a.items) - 1
	}
	return end
}

// handle applies one event and reports whether the reader should exit.
func (a *App) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyUp:
			if a.selectedIdx > a.currentPage*a.itemsPerPage {
				a.selectedIdx--
			}
		case tcell.KeyDown:
			if a.selectedIdx < a.lastOnPage() {
				a.selectedIdx++
			}
		case tcell.KeyRight:
			if (a.currentPage+1)*a.itemsPerPage < len(a.items) {
				a.currentPage++
				a.selectedIdx = a.currentPage * a.itemsPerPage
			}
		case tcell.KeyLeft:
			if a.currentPage > 0 {
				a.currentPage--
				a.selectedIdx = a.currentPage * a.itemsPerPage
			}
		case tcell.KeyEnter:
			if item, ok := a.selected(); ok {
				u := item.Story.OriginalURL
				a.expanded[u] = !a.expanded[u]
			}
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return true
			case 'k', 'K':
				if item, ok := a.selected(); ok {
					u := item.Story.OriginalURL
					a.showKeywords[u] = !a.showKeywords[u]
				}
			case 'o', 'O':
				if item, ok := a.selected(); ok {
					if err := a.open(item.Story.OriginalURL); err != nil {
						a.statusMessage = fmt.Sprintf("could not open browser: %v", err)
					}
				}
			case 'f', 'F':
				if pattern := a.getInput("Filter headlines (regex): "); pattern != "" {
					if err := a.Filter(pattern); err != nil {
						a.statusMessage = err.Error()
					}
				}
			case 'r', 'R':
				a.Filter("")
			}
		}
	}
	return false
}

// Filter keeps the items whose headline or source matches pattern,
// case-insensitively. An empty pattern shows everything again.
func (a *App) Filter(pattern string) error {
	a.selectedIdx, a.currentPage = 0, 0
	a.statusMessage = ""
	if pattern == "" {
		a.items = a.all
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("bad filter: %w", err)
	}
	var kept []Item
	for _, item := range a.all {
		if re.MatchString(item.Story.Headline) || re.MatchString(item.Story.Source) {
			kept = append(kept, item)
		}
	}
	a.items = kept
	a.statusMessage = fmt.Sprintf("%d of %d stories match %q", len(kept), len(a.all), pattern)
	return nil
}

func (a *App) draw() {
	a.screen.Clear()
	width, height := a.screen.Size()
	style := tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorWhite)
	selectedStyle := tcell.StyleDefault.Background(tcell.Color24).Foreground(tcell.ColorWhite)
	summaryStyle := style.Foreground(tcell.Color248)
	keywordStyle := style.Foreground(tcell.ColorYellow)

	start := a.currentPage * a.itemsPerPage
	end := start + a.itemsPerPage
	if end > len(a.items) {
		end = len(a.items)
	}

	lineIdx := 0
	for idx := start; idx < end && lineIdx < height-2; idx++ {
		item := a.items[idx]
		story := item.Story

		currentStyle := style
		if idx == a.selectedIdx {
			currentStyle = selectedStyle
		}
		title := fmt.Sprintf("%s | %s | %s/%s | %s", story.Headline, web.GetDomain(story.OriginalURL), item.Category, item.Subcategory, story.Date)
		lineIdx = drawText(a.screen, 0, lineIdx, width, currentStyle, title) + 1

		if a.expanded[story.OriginalURL] && story.Summary != "" && lineIdx < height-2 {
			lineIdx = drawText(a.screen, 2, lineIdx, width-2, summaryStyle, story.Summary) + 1
			if lineIdx < height-2 {
				hints := fmt.Sprintf("Tone: %s | Reading level: %s", analysis.Sentiment(story.Headline), analysis.ReadingLevel(story.Summary))
				lineIdx = drawText(a.screen, 2, lineIdx, width-2, summaryStyle, hints) + 1
			}
		}
		if a.showKeywords[story.OriginalURL] && len(story.Keywords) > 0 && lineIdx < height-2 {
			lineIdx = drawText(a.screen, 2, lineIdx, width-2, keywordStyle, "Keywords: "+strings.Join(story.Keywords, ", ")) + 1
		}
	}

	if len(a.items) == 0 {
		drawText(a.screen, 0, 0, width, style, "No stories.")
	}

	pages := int(math.Ceil(float64(len(a.items)) / float64(a.itemsPerPage)))
	help := fmt.Sprintf("^/v: Navigate (%d/%d) | <>: Page (%d/%d) | Enter: Summary | K: Keywords", a.selectedIdx+1, len(a.items), a.currentPage+1, max(pages, 1))
	help2 := "O: Open in browser | F: Filter | R: Reset filter | Q: Quit"
	if a.statusMessage != "" {
		help2 += " | " + a.statusMessage
	}
	if height > 1 {
		drawText(a.screen, 0, height-2, width, style, help)
		drawText(a.screen, 0, height-1, width, style, help2)
	}
	a.screen.Show()
}

// getInput reads a line typed on the bottom row. Escape cancels.
func (a *App) getInput(prompt string) string {
	width, height := a.screen.Size()
	style := tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorWhite)
	for i := 0; i < width; i++ {
		a.screen.SetContent(i, height-1, ' ', nil, style)
	}
	drawText(a.screen, 0, height-1, width, style, prompt)
	a.screen.Show()

	var input []rune
	x := runewidth.StringWidth(prompt)
	for {
		raw := a.screen.PollEvent()
		if raw == nil {
			return ""
		}
		ev, ok := raw.(*tcell.EventKey)
		if !ok {
			continue
		}
		switch ev.Key() {
		case tcell.KeyEnter:
			return string(input)
		case tcell.KeyEscape:
			return ""
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if len(input) > 0 {
				last := input[len(input)-1]
				input = input[:len(input)-1]
				x -= runewidth.RuneWidth(last)
				a.screen.SetContent(x, height-1, ' ', nil, style)
			}
		case tcell.KeyRune:
			input = append(input, ev.Rune())
			a.screen.SetContent(x, height-1, ev.Rune(), nil, style)
			x += runewidth.RuneWidth(ev.Rune())
		}
		a.screen.Show()
	}
}

// drawText word-wraps text into maxWidth columns starting at (x, y) and
// returns the last row it wrote.
func drawText(screen tcell.Screen, x, y, maxWidth int, style tcell.Style, text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return y
	}

	put := func(line string, row int) {
		col := x
		for _, r := range line {
			screen.SetContent(col, row, r, nil, style)
			col += runewidth.RuneWidth(r)
		}
	}

	line := words[0]
	for _, word := range words[1:] {
		if runewidth.StringWidth(line)+1+runewidth.StringWidth(word) <= maxWidth {
			line += " " + word
			continue
		}
		put(line, y)
		y++
		line = word
	}
	put(line, y)
	return y
}

// OpenBrowser opens link with the platform's default handler.
func OpenBrowser(link string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start"}
	case "darwin":
		cmd = "open"
	default: // "linux", "freebsd", "openbsd", "netbsd"
		cmd = "xdg-open"
	}
	args = append(args, link)
	return exec.Command(cmd, args...).Start()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
