package tui

import (
	"fmt"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

const rateHistoryLen = 120

var (
	rateBarStyle   = lipgloss.NewStyle().Foreground(ColorYellow).Background(ColorYellow)
	emptyBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Background(lipgloss.Color("238"))
	rateChartLabel = lipgloss.NewStyle().Foreground(ColorGray)
)

// pushRate appends one per-second sample, keeping at most rateHistoryLen.
func (m *DashboardModel) pushRate(perSecond int64) {
	m.rateHistory = append(m.rateHistory, perSecond)
	if over := len(m.rateHistory) - rateHistoryLen; over > 0 {
		m.rateHistory = append(m.rateHistory[:0], m.rateHistory[over:]...)
	}
}

// renderRateChart draws the most recent samples right-aligned, one bar per tick.
func (m *DashboardModel) renderRateChart(width, height int) string {
	if width < 4 || height < 2 {
		return ""
	}
	chartHeight := height - 1

	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(0),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	samples := m.rateHistory
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	for i := 0; i < width-len(samples); i++ {
		bc.Push(barchart.BarData{Values: []barchart.BarValue{{Name: "EMPTY", Value: 0, Style: emptyBarStyle}}})
	}

	var peak int64
	for _, v := range samples {
		peak = max(peak, v)
		bc.Push(barchart.BarData{Values: []barchart.BarValue{{Name: "RATE", Value: float64(v), Style: rateBarStyle}}})
	}

	bc.Draw()
	label := rateChartLabel.Render(fmt.Sprintf("gain/s, last %d ticks, peak %s", len(samples), formatCount(peak)))
	return lipgloss.JoinVertical(lipgloss.Left, bc.View(), label)
}
