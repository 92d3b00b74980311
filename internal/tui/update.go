package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/chatlog/internal/model"
)

// Init starts the refresh loop.
func (m *DashboardModel) Init() tea.Cmd {
	return m.tick()
}

func (m *DashboardModel) tick() tea.Cmd {
	return tea.Tick(m.updateInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		if !m.paused {
			m.refresh()
		}
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleChannel):
		// "1".."7" map onto channel order.
		ch := model.Channel(msg.String()[0] - '1')
		if ch.Valid() {
			m.visible[ch] = !m.visible[ch]
		}

	case key.Matches(msg, m.keys.ToggleTime):
		m.showTime = !m.showTime

	case key.Matches(msg, m.keys.ToggleSplit):
		m.vertical = !m.vertical

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if !m.paused {
			m.refresh()
		}

	case key.Matches(msg, m.keys.Focus):
		m.focusNext()

	case key.Matches(msg, m.keys.ScrollUp):
		m.scrollBy(1)

	case key.Matches(msg, m.keys.ScrollDown):
		m.scrollBy(-1)

	case key.Matches(msg, m.keys.PageUp):
		m.scrollBy(m.page())

	case key.Matches(msg, m.keys.PageDown):
		m.scrollBy(-m.page())

	case key.Matches(msg, m.keys.Follow):
		m.toggleFollow()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}
