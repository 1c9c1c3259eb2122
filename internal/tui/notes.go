package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// NotesPageID identifies the notes page.
const NotesPageID = "notes"

var notesText = []string{
	"Availability is scraped from the university's room schedule and cached for a day.",
	"A room is listed only if it stays free for at least 30 minutes.",
	"Anyone can refresh the data, but only once every 30 minutes across all users.",
	"Rooms may still be locked or used by events that are not on the schedule.",
}

// NotesPage explains where the data comes from.
type NotesPage struct {
	keys KeyMap
}

// NewNotesPage creates the notes page.
func NewNotesPage() *NotesPage {
	return &NotesPage{keys: DefaultKeyMap()}
}

func (p *NotesPage) ID() string    { return NotesPageID }
func (p *NotesPage) Init() tea.Cmd { return nil }

func (p *NotesPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, p.keys.Back) {
		return nil, &PageNav{PageID: BoardPageID}
	}
	return nil, nil
}

func (p *NotesPage) View(width, height int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Notes"))
	sb.WriteString("\n\n")
	body := lipgloss.NewStyle().Width(max(width-4, 20))
	for _, line := range notesText {
		sb.WriteString(body.Render("• " + line))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("esc back • q quit"))
	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, sb.String())
}
