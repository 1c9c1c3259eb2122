package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// headerLines is the title, subtitle, status line and a spacer.
const headerLines = 4

func (b *Board) resize(width, height int) {
	b.width, b.height = width, height
	b.help.Width = width

	body := height - headerLines - lipgloss.Height(b.help.View(b.keys))
	if b.showChart() {
		body -= chartHeight + 2
	}
	b.viewport.Width = width
	b.viewport.Height = max(body, 1)
}

func (b *Board) showChart() bool {
	return b.loaded && len(b.buildings) > 0 && b.width >= 40 && b.height >= 24
}

// RefreshLabel is the text of the refresh control.
func (b *Board) RefreshLabel() string {
	switch {
	case b.refreshing:
		return "Refreshing..."
	case b.cooldownLoading > 0:
		return "Checking..."
	case b.tracker.Active():
		return "Wait " + formatRemaining(b.tracker.RemainingDuration())
	default:
		return "Refresh"
	}
}

// StatusText is the last-updated line shown beside the refresh control.
func (b *Board) StatusText() string {
	if !b.hasLastUpdated {
		return "Loading data..."
	}
	return "Last updated " + b.lastUpdated.In(b.loc).Format("3:04 PM")
}

// formatRemaining renders a duration rounded up to whole seconds, e.g.
// "4m 12s".
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs >= 60 {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

func (b *Board) View(width, height int) string {
	if width != b.width || height != b.height {
		b.resize(width, height)
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("roomwatch"),
		subtitleStyle.Render("Find empty classrooms to study in"),
		b.renderStatusLine(),
		"",
	)

	now := b.clk.Now().In(b.loc)
	counts := make(map[string]int, len(b.buildings))
	for code, building := range b.buildings {
		counts[code] = len(OpenNow(building, now))
	}

	sections := []string{header}
	if b.showChart() {
		sections = append(sections, renderOpenChart(b.buildings, counts, width), "")
	}

	b.viewport.SetContent(b.renderBody(now, counts))
	sections = append(sections, b.viewport.View(), helpStyle.Render(b.help.View(b.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (b *Board) renderStatusLine() string {
	var status string
	if b.hasLastUpdated {
		status = statusStyle.Render(b.StatusText())
	} else {
		status = loadingStyle.Render(b.StatusText())
	}

	label := b.RefreshLabel()
	var control string
	switch {
	case b.refreshing || b.cooldownLoading > 0:
		control = refreshBusyStyle.Render(b.spinner.View() + " " + label)
	case b.tracker.Active():
		control = cooldownStyle.Render(label)
	default:
		control = refreshStyle.Render(label)
	}
	return status + "  " + control
}

func (b *Board) renderBody(now time.Time, counts map[string]int) string {
	if b.buildingsErr != "" {
		return errorStyle.Render(b.buildingsErr)
	}
	if !b.loaded {
		return loadingStyle.Render(b.spinner.View() + " Loading classrooms...")
	}
	if len(b.buildings) == 0 {
		return helpStyle.Render("No buildings reported.")
	}

	var sb strings.Builder
	for i, code := range sortedCodes(b.buildings) {
		building := b.buildings[code]
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(sectionTitleStyle.Render(fmt.Sprintf("%s  %s", code, building.Name)))
		sb.WriteString(helpStyle.Render(fmt.Sprintf("  %d open", counts[code])))
		sb.WriteString("\n")

		rooms := OpenNow(building, now)
		if len(rooms) == 0 {
			sb.WriteString(helpStyle.Render("  No classrooms open right now."))
			sb.WriteString("\n")
		}
		for _, room := range rooms {
			sb.WriteString("  ")
			sb.WriteString(roomStyle.Render(fmt.Sprintf("%-8s", room.Name)))
			sb.WriteString(untilStyle.Render("open until " + clockLabel(room.Until)))
			sb.WriteString("\n")
		}
		if later := OpensLater(building, now); later > 0 {
			sb.WriteString(helpStyle.Render(fmt.Sprintf("  %d more open later today", later)))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
