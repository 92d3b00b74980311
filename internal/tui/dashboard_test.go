package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/chatlog/internal/model"
)

type fakeReader struct {
	views [model.ChannelCount][]model.Entry
	rate  model.Rate
	last  model.PollEvent
}

func (f *fakeReader) View(ch model.Channel, bounded bool) model.View {
	return model.View{Channel: ch, Entries: f.views[ch], Total: len(f.views[ch])}
}

func (f *fakeReader) Views(bounded bool) []model.View {
	out := make([]model.View, 0, model.ChannelCount)
	for _, ch := range model.Channels() {
		out = append(out, f.View(ch, bounded))
	}
	return out
}

func (f *fakeReader) Rate() model.Rate           { return f.rate }
func (f *fakeReader) LastPoll() model.PollEvent { return f.last }

func (f *fakeReader) add(ch model.Channel, msg string) {
	e := model.Entry{Message: msg, Color: "#f7b73c", Timestamp: "[ 9時  5分  7秒]"}
	f.views[model.All] = append(f.views[model.All], e)
	f.views[ch] = append(f.views[ch], e)
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewDashboardModel_DefaultChannels(t *testing.T) {
	m := NewDashboardModel(&fakeReader{}, Options{})

	got := m.Visible()
	if len(got) != len(DefaultChannels) {
		t.Fatalf("Visible() = %v, want %v", got, DefaultChannels)
	}
	for i, ch := range DefaultChannels {
		if got[i] != ch {
			t.Errorf("Visible()[%d] = %v, want %v", i, got[i], ch)
		}
	}
	if m.updateInterval != model.DefaultUpdateInterval {
		t.Errorf("updateInterval = %v", m.updateInterval)
	}
}

func TestUpdate_ToggleKeys(t *testing.T) {
	m := NewDashboardModel(&fakeReader{}, Options{Channels: []model.Channel{model.All}})

	m.Update(keyMsg("2"))
	m.Update(keyMsg("1"))
	if got := m.Visible(); len(got) != 1 || got[0] != model.Public {
		t.Errorf("Visible() after toggles = %v, want [Public]", got)
	}

	m.Update(keyMsg("t"))
	if !m.showTime {
		t.Error("t should enable the time column")
	}
	m.Update(keyMsg("v"))
	if !m.vertical {
		t.Error("v should switch to a vertical split")
	}
	m.Update(keyMsg("p"))
	if !m.paused {
		t.Error("p should pause")
	}
}

func TestUpdate_Quit(t *testing.T) {
	m := NewDashboardModel(&fakeReader{}, Options{})
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestUpdate_TickRefreshes(t *testing.T) {
	r := &fakeReader{}
	m := NewDashboardModel(r, Options{})

	r.add(model.Team, "hello team")
	r.rate = model.Rate{PerSecond: 5, PerMinute: 300, PerHour: 18000}

	_, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if !m.fresh[model.Team] || !m.fresh[model.All] {
		t.Error("Team and All should be marked fresh")
	}
	if m.fresh[model.Club] {
		t.Error("Club should not be fresh")
	}
	if m.rate.PerSecond != 5 {
		t.Errorf("rate = %+v", m.rate)
	}

	m.Update(TickMsg(time.Now()))
	if m.fresh[model.Team] {
		t.Error("Team should not stay fresh without new entries")
	}
}

func TestUpdate_PausedSkipsRefresh(t *testing.T) {
	r := &fakeReader{}
	m := NewDashboardModel(r, Options{})
	m.Update(keyMsg("p"))

	r.add(model.Team, "while paused")
	m.Update(TickMsg(time.Now()))
	if m.totals[model.Team] != 0 {
		t.Errorf("paused dashboard refreshed: total = %d", m.totals[model.Team])
	}

	m.Update(keyMsg("p"))
	if m.totals[model.Team] != 1 {
		t.Errorf("resume should refresh: total = %d", m.totals[model.Team])
	}
}

func TestView_RendersPanesAndRate(t *testing.T) {
	r := &fakeReader{rate: model.Rate{PerSecond: 20000, PerMinute: 1200000, PerHour: 72000000}}
	r.add(model.Team, "hello team")
	m := NewDashboardModel(r, Options{ShowTime: true, Path: func() string { return "TWChatLog_2024_03_10.html" }})
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})

	out := m.View()
	for _, want := range []string{"1 All", "4 Team", "5 Club", "6 System", "hello team", "09:05:07", "20,000/s", "TWChatLog_2024_03_10.html"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	tests := []struct {
		name string
		last model.PollEvent
		want string
	}{
		{"waiting", model.PollEvent{}, "waiting for first poll"},
		{"format", model.PollEvent{At: time.Now(), Err: "bad line", FormatErr: true}, "log format not recognized"},
		{"io", model.PollEvent{At: time.Now(), Err: "permission denied"}, "poll failed"},
		{"no file", model.NewPollEvent(model.NoFile, time.Now(), nil, 0), "no log file"},
		{"updated", model.NewPollEvent(model.Updated, time.Now(), nil, 3), "updated  +3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewDashboardModel(&fakeReader{last: tt.last}, Options{})
			if got := m.renderStatus(); !strings.Contains(got, tt.want) {
				t.Errorf("renderStatus() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[int64]string{0: "0", 999: "999", 1000: "1,000", 72000000: "72,000,000", -1234: "-1,234"}
	for in, want := range tests {
		if got := formatCount(in); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPushRateBounded(t *testing.T) {
	m := NewDashboardModel(&fakeReader{}, Options{})
	for i := range rateHistoryLen + 10 {
		m.pushRate(int64(i))
	}
	if len(m.rateHistory) != rateHistoryLen {
		t.Fatalf("history len = %d", len(m.rateHistory))
	}
	if m.rateHistory[len(m.rateHistory)-1] != rateHistoryLen+9 {
		t.Errorf("newest sample = %d", m.rateHistory[len(m.rateHistory)-1])
	}
}

func scrollModel(t *testing.T, channels ...model.Channel) (*DashboardModel, *fakeReader) {
	t.Helper()
	r := &fakeReader{}
	for i := range 30 {
		r.add(model.Team, fmt.Sprintf("team %d", i))
	}
	m := NewDashboardModel(r, Options{Channels: channels})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.View()
	return m, r
}

func TestScroll_HoldsPositionAsEntriesArrive(t *testing.T) {
	m, r := scrollModel(t, model.Team)

	m.Update(keyMsg("k"))
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.Scroll(model.Team); got != 2 {
		t.Fatalf("Scroll after two steps up = %d, want 2", got)
	}
	if m.Following(model.Team) {
		t.Fatal("scrolling back should stop auto-scroll")
	}
	out := m.View()
	if !strings.Contains(out, "team 27") || strings.Contains(out, "team 28") {
		t.Errorf("pane should end at team 27:\n%s", out)
	}

	for i := 30; i < 33; i++ {
		r.add(model.Team, fmt.Sprintf("team %d", i))
	}
	m.Update(TickMsg(time.Now()))
	if got := m.Scroll(model.Team); got != 5 {
		t.Errorf("Scroll after 3 new entries = %d, want 5", got)
	}
	out = m.View()
	if !strings.Contains(out, "team 27") || strings.Contains(out, "team 32") {
		t.Errorf("held pane moved with new entries:\n%s", out)
	}
}

func TestScroll_BottomResumesFollowing(t *testing.T) {
	m, _ := scrollModel(t, model.Team)

	m.Update(keyMsg("b"))
	if m.Scroll(model.Team) == 0 || m.Following(model.Team) {
		t.Fatalf("page up: Scroll = %d, following = %v", m.Scroll(model.Team), m.Following(model.Team))
	}
	for range 40 {
		m.Update(keyMsg("j"))
	}
	if m.Scroll(model.Team) != 0 || !m.Following(model.Team) {
		t.Errorf("at the bottom: Scroll = %d, following = %v", m.Scroll(model.Team), m.Following(model.Team))
	}
	if !strings.Contains(m.View(), "team 29") {
		t.Error("following pane should show the newest entry")
	}
}

func TestScroll_ClampsAtOldestEntry(t *testing.T) {
	m, _ := scrollModel(t, model.Team)

	for range 100 {
		m.Update(keyMsg("k"))
	}
	// 30 entries in 13 rows leave 17 to scroll through.
	if got := m.Scroll(model.Team); got != 17 {
		t.Errorf("Scroll = %d, want 17", got)
	}
	if !strings.Contains(m.View(), "team 0") {
		t.Error("fully scrolled pane should show the oldest entry")
	}
}

func TestFollowToggle(t *testing.T) {
	m, r := scrollModel(t, model.Team)

	m.Update(keyMsg("f"))
	if m.Following(model.Team) {
		t.Fatal("f should turn auto-scroll off")
	}
	r.add(model.Team, "team 30")
	m.Update(TickMsg(time.Now()))
	if got := m.Scroll(model.Team); got != 1 {
		t.Errorf("Scroll with auto-scroll off = %d, want 1", got)
	}

	m.Update(keyMsg("f"))
	if !m.Following(model.Team) || m.Scroll(model.Team) != 0 {
		t.Errorf("f again: following = %v, Scroll = %d", m.Following(model.Team), m.Scroll(model.Team))
	}
}

func TestFocusCyclesVisiblePanes(t *testing.T) {
	m, _ := scrollModel(t, model.All, model.Team)

	if got := m.Focused(); got != model.All {
		t.Fatalf("Focused = %v, want All", got)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := m.Focused(); got != model.Team {
		t.Fatalf("Focused after tab = %v, want Team", got)
	}
	m.Update(keyMsg("k"))
	if m.Scroll(model.Team) != 1 || m.Scroll(model.All) != 0 {
		t.Errorf("only the focused pane should scroll: Team %d, All %d", m.Scroll(model.Team), m.Scroll(model.All))
	}

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := m.Focused(); got != model.All {
		t.Errorf("Focused after second tab = %v, want All", got)
	}

	m.Update(keyMsg("1"))
	if got := m.Focused(); got != model.Team {
		t.Errorf("Focused after hiding All = %v, want Team", got)
	}
}
