package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/tinytelemetry/chatlog/internal/model"
)

// DefaultChannels are the panes shown when no channel list is configured.
var DefaultChannels = []model.Channel{model.All, model.Team, model.Club, model.System}

// Options configures the dashboard.
type Options struct {
	Channels       []model.Channel
	ShowTime       bool
	Vertical       bool
	UpdateInterval time.Duration
	// Path reports the file currently being tailed. Optional.
	Path func() string
}

// TickMsg drives the periodic refresh.
type TickMsg time.Time

// DashboardModel renders the channel buffers as panes with a rate readout.
type DashboardModel struct {
	reader model.Reader
	keys   KeyMap
	help   help.Model
	path   func() string

	updateInterval time.Duration
	width          int
	height         int

	visible  [model.ChannelCount]bool
	showTime bool
	vertical bool
	paused   bool

	// focus is the pane the scroll keys act on. scroll counts entries
	// hidden below a pane's last row; a following pane stays at 0.
	focus  model.Channel
	scroll [model.ChannelCount]int
	follow [model.ChannelCount]bool
	rows   [model.ChannelCount]int

	views       []model.View
	totals      [model.ChannelCount]int
	fresh       [model.ChannelCount]bool
	rate        model.Rate
	rateHistory []int64
	last        model.PollEvent
}

// NewDashboardModel creates a dashboard reading from reader.
func NewDashboardModel(reader model.Reader, opts Options) *DashboardModel {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = model.DefaultUpdateInterval
	}
	channels := opts.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}

	m := &DashboardModel{
		reader:         reader,
		keys:           DefaultKeyMap(),
		help:           help.New(),
		path:           opts.Path,
		updateInterval: opts.UpdateInterval,
		width:          120,
		height:         40,
		showTime:       opts.ShowTime,
		vertical:       opts.Vertical,
	}
	for _, ch := range channels {
		if ch.Valid() {
			m.visible[ch] = true
		}
	}
	for ch := range m.follow {
		m.follow[ch] = true
	}
	m.refresh()
	return m
}

// Visible returns the channels currently shown, in channel order.
func (m *DashboardModel) Visible() []model.Channel {
	var out []model.Channel
	for _, ch := range model.Channels() {
		if m.visible[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// refresh pulls a bounded snapshot from the reader. A pane is marked fresh
// when its stored total grew since the previous refresh. A pane that is not
// following keeps showing the same entries as new ones arrive below.
func (m *DashboardModel) refresh() {
	views := m.reader.Views(true)
	for _, v := range views {
		ch := v.Channel
		if !ch.Valid() {
			continue
		}
		grew := v.Total - m.totals[ch]
		m.fresh[ch] = grew > 0
		m.totals[ch] = v.Total
		if !m.follow[ch] && grew > 0 {
			m.scroll[ch] += grew
		}
		m.scroll[ch] = min(m.scroll[ch], maxScroll(len(v.Entries), m.rows[ch]))
	}
	m.views = views
	m.rate = m.reader.Rate()
	m.last = m.reader.LastPoll()
	m.pushRate(m.rate.PerSecond)
}

// Focused returns the pane the scroll keys act on.
func (m *DashboardModel) Focused() model.Channel {
	if !m.visible[m.focus] {
		if vis := m.Visible(); len(vis) > 0 {
			m.focus = vis[0]
		}
	}
	return m.focus
}

// Following reports whether ch scrolls to new entries as they arrive.
func (m *DashboardModel) Following(ch model.Channel) bool { return m.follow[ch] }

// Scroll returns how many entries of ch are hidden below its last row.
func (m *DashboardModel) Scroll(ch model.Channel) int { return m.scroll[ch] }

func (m *DashboardModel) focusNext() {
	vis := m.Visible()
	if len(vis) == 0 {
		return
	}
	cur := m.Focused()
	for i, ch := range vis {
		if ch == cur {
			m.focus = vis[(i+1)%len(vis)]
			return
		}
	}
	m.focus = vis[0]
}

// scrollBy moves the focused pane delta entries back in time, or forward
// when delta is negative. Scrolling back stops following; reaching the
// newest entry resumes it.
func (m *DashboardModel) scrollBy(delta int) {
	ch := m.Focused()
	if !m.visible[ch] {
		return
	}
	limit := maxScroll(len(m.view(ch).Entries), m.rows[ch])
	m.scroll[ch] = max(min(m.scroll[ch]+delta, limit), 0)
	m.follow[ch] = m.scroll[ch] == 0
}

func (m *DashboardModel) toggleFollow() {
	ch := m.Focused()
	m.follow[ch] = !m.follow[ch]
	if m.follow[ch] {
		m.scroll[ch] = 0
	}
}

// page is the scroll step for the focused pane.
func (m *DashboardModel) page() int {
	return max(m.rows[m.Focused()]-1, 1)
}

// maxScroll is the largest offset that still fills rows with entries. Before
// the pane has been drawn any entry may be scrolled to.
func maxScroll(entries, rows int) int {
	if rows <= 0 {
		return max(entries-1, 0)
	}
	return max(entries-rows, 0)
}

func (m *DashboardModel) view(ch model.Channel) model.View {
	for _, v := range m.views {
		if v.Channel == ch {
			return v
		}
	}
	return model.View{Channel: ch}
}
