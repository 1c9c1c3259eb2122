package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// closer is implemented by pages that own timers or in-flight requests.
type closer interface {
	Close()
}

// App is the top-level Bubble Tea model that routes between pages.
type App struct {
	pages      map[string]Page
	order      []string
	activePage string
	keys       KeyMap
	width      int
	height     int
}

// NewApp creates a new App with the given pages. The first page is the default.
func NewApp(pages ...Page) *App {
	pageMap := make(map[string]Page, len(pages))
	order := make([]string, 0, len(pages))
	for _, p := range pages {
		pageMap[p.ID()] = p
		order = append(order, p.ID())
	}
	a := &App{
		pages: pageMap,
		order: order,
		keys:  DefaultKeyMap(),
	}
	if len(order) > 0 {
		a.activePage = order[0]
	}
	return a
}

// ActivePage returns the id of the page receiving key input.
func (a *App) ActivePage() string { return a.activePage }

// Init starts every page once. Switching pages later does not re-run Init.
func (a *App) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.order))
	for _, id := range a.order {
		cmds = append(cmds, a.pages[id].Init())
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit, a.keys.ForceQuit) {
			a.Close()
			return a, tea.Quit
		}
		// Keys only go to the page on screen.
		p, ok := a.pages[a.activePage]
		if !ok {
			return a, nil
		}
		cmd, nav := p.Update(msg)
		a.navigate(nav)
		return a, cmd
	}

	// Everything else, including results of requests started by a page
	// that is no longer on screen, is delivered to every page.
	var cmds []tea.Cmd
	for _, id := range a.order {
		cmd, nav := a.pages[id].Update(msg)
		cmds = append(cmds, cmd)
		if id == a.activePage {
			a.navigate(nav)
		}
	}
	return a, tea.Batch(cmds...)
}

func (a *App) navigate(nav *PageNav) {
	if nav == nil {
		return
	}
	if _, exists := a.pages[nav.PageID]; exists {
		a.activePage = nav.PageID
	}
}

// Close tears down every page that holds resources.
func (a *App) Close() {
	for _, id := range a.order {
		if c, ok := a.pages[id].(closer); ok {
			c.Close()
		}
	}
}

func (a *App) View() string {
	if p, ok := a.pages[a.activePage]; ok {
		return p.View(a.width, a.height)
	}
	return "No active page"
}
