package tui

import (
	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/roomwatch/roomwatch/internal/model"
)

const chartHeight = 7

// renderOpenChart draws one bar per building sized by rooms open now.
func renderOpenChart(bs model.Buildings, counts map[string]int, width int) string {
	if len(bs) == 0 || width < 20 {
		return ""
	}

	codes := sortedCodes(bs)
	barWidth := 5
	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(3),
		barchart.WithBarWidth(barWidth),
	)
	for _, code := range codes {
		bc.Push(barchart.BarData{
			Label: code,
			Values: []barchart.BarValue{
				{Name: code, Value: float64(counts[code]), Style: barStyle},
			},
		})
	}
	bc.Draw()

	return lipgloss.JoinVertical(lipgloss.Left,
		sectionTitleStyle.Render("Open now by building"),
		bc.View(),
	)
}
