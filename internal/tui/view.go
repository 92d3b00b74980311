package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/chatlog/internal/model"
	"github.com/tinytelemetry/chatlog/internal/timestamp"
)

const (
	chartRows       = 5
	minChartHeight  = 24
	minPaneInterior = 1
)

// View renders the dashboard.
func (m *DashboardModel) View() string {
	var sections []string
	sections = append(sections, m.renderHeader())

	chart := ""
	if m.height >= minChartHeight {
		chart = m.renderRateChart(m.width, chartRows)
	}

	footer := []string{m.renderRate(), m.renderStatus(), m.help.View(m.keys)}
	used := 1 + len(footer)
	if chart != "" {
		used += lipgloss.Height(chart)
	}

	sections = append(sections, m.renderPanes(m.width, max(m.height-used, 3)))
	if chart != "" {
		sections = append(sections, chart)
	}
	sections = append(sections, footer...)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DashboardModel) renderHeader() string {
	left := titleStyle.Render("chatlog")
	right := ""
	if m.path != nil {
		right = m.path()
	}
	if m.paused {
		right = pausedStyle.Render("PAUSED") + "  " + right
	}
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-1, 1)
	return left + statusStyle.Render(strings.Repeat(" ", gap)+right+" ")
}

func (m *DashboardModel) renderRate() string {
	return rateStyle.Render(fmt.Sprintf("EXP  %s/s  %s/min  %s/h",
		formatCount(m.rate.PerSecond), formatCount(m.rate.PerMinute), formatCount(m.rate.PerHour)))
}

// renderStatus reports the last poll. A format error is shown apart from an
// empty or missing log so the user knows an update is required.
func (m *DashboardModel) renderStatus() string {
	last := m.last
	switch {
	case last.FormatErr:
		return errorStyle.Render("log format not recognized: " + last.Err)
	case last.Err != "":
		return errorStyle.Render("poll failed: " + last.Err)
	case last.At.IsZero():
		return clockStyle.Render("waiting for first poll")
	case last.Status == model.NoFile:
		return clockStyle.Render("no log file for today yet")
	}
	return clockStyle.Render(fmt.Sprintf("last poll %s  %s  +%d",
		last.At.Format("15:04:05"), last.Status, last.Count))
}

func (m *DashboardModel) renderPanes(width, height int) string {
	channels := m.Visible()
	if len(channels) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			clockStyle.Render("no channels selected, press 1-7"))
	}

	n := len(channels)
	panes := make([]string, 0, n)
	for i, ch := range channels {
		w, h := width/n, height
		if m.vertical {
			w, h = width, height/n
			if i == n-1 {
				h = height - (n-1)*(height/n)
			}
		} else if i == n-1 {
			w = width - (n-1)*(width/n)
		}
		panes = append(panes, m.renderPane(ch, w, h))
	}

	if m.vertical {
		return lipgloss.JoinVertical(lipgloss.Left, panes...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panes...)
}

// renderPane draws one bordered channel pane of outer size w x h.
func (m *DashboardModel) renderPane(ch model.Channel, w, h int) string {
	innerW := max(w-2, minPaneInterior)
	innerH := max(h-2, minPaneInterior)
	v := m.view(ch)

	rows := max(innerH-1, 0)
	m.rows[ch] = rows
	offset := min(m.scroll[ch], maxScroll(len(v.Entries), rows))
	end := len(v.Entries) - offset
	entries := v.Entries[max(end-rows, 0):end]

	title := paneTitleStyle.Render(fmt.Sprintf("%d %s", int(ch)+1, ch)) +
		clockStyle.Render(fmt.Sprintf(" (%d)", v.Total))
	if offset > 0 {
		title += scrollStyle.Render(fmt.Sprintf(" ↑%d", offset))
	} else if !m.follow[ch] {
		title += scrollStyle.Render(" hold")
	}

	line := lipgloss.NewStyle().Inline(true).MaxWidth(innerW)
	lines := make([]string, 0, innerH)
	lines = append(lines, line.Render(title))
	for _, e := range entries {
		lines = append(lines, line.Render(m.formatEntry(e)))
	}
	for len(lines) < innerH {
		lines = append(lines, "")
	}

	style := paneStyle
	if m.fresh[ch] {
		style = freshPaneStyle
	}
	if ch == m.Focused() && len(m.Visible()) > 1 {
		style = style.Border(lipgloss.ThickBorder())
	}
	return style.Width(innerW).Height(innerH).Render(strings.Join(lines, "\n"))
}

func (m *DashboardModel) formatEntry(e model.Entry) string {
	msg := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render(e.Message)
	if !m.showTime {
		return msg
	}
	clock := strings.TrimSpace(e.Timestamp)
	if c, ok := timestamp.Parse(e.Timestamp); ok {
		clock = c.String()
	}
	return clockStyle.Render(clock) + " " + msg
}

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
