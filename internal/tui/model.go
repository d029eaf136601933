// Package tui provides the Bubble Tea practice interface. It stands in for
// the game host: keys produce host events and a simulated host answers the
// trainer's repeat/advance commands.
package tui

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/ctrainer/internal/aggregator"
	"github.com/verte-zerg/ctrainer/internal/session"
	"github.com/verte-zerg/ctrainer/internal/stats"
)

const (
	frameInterval  = 25 * time.Millisecond
	ticksPerFrame  = 3
	hostEchoDelay  = 150 * time.Millisecond
	maxAttemptsCap = 50
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	boostOnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FA8C16")).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	panelStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

type frameMsg time.Time

// hostResetMsg is the host resetting the shot after a repeat request.
type hostResetMsg struct{}

// hostAdvanceMsg is the host moving on after an advance request.
type hostAdvanceMsg struct{}

// simHost records commands issued by the controller so Update can turn them
// into delayed host messages.
type simHost struct {
	pending []tea.Msg
}

func (h *simHost) RepeatShot()  { h.pending = append(h.pending, hostResetMsg{}) }
func (h *simHost) AdvanceShot() { h.pending = append(h.pending, hostAdvanceMsg{}) }

func (h *simHost) drain() []tea.Msg {
	out := h.pending
	h.pending = nil
	return out
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	ctrl *session.Controller
	host *simHost

	width  int
	height int

	boostHeld   bool
	lastOutcome *aggregator.Outcome
	bar         progress.Model
}

// NewHost returns the command sink the practice UI answers. Pass it to
// session.New and then to NewModel.
func NewHost() session.CommandSink {
	return &simHost{}
}

// NewModel constructs a practice TUI model around a controller built with
// the sink from NewHost.
func NewModel(ctrl *session.Controller, host session.CommandSink) *Model {
	h, ok := host.(*simHost)
	if !ok {
		h = &simHost{}
	}
	m := &Model{
		ctrl: ctrl,
		host: h,
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	ctrl.OnOutcome = func(out aggregator.Outcome) {
		m.lastOutcome = &out
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return frame()
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = maxInt(10, minInt(60, msg.Width-4))
		return m, nil
	case frameMsg:
		for i := 0; i < ticksPerFrame; i++ {
			m.ctrl.BoostTick(m.boostHeld)
		}
		m.ctrl.Tick()
		return m, tea.Batch(append(m.hostCmds(), frame())...)
	case hostResetMsg:
		m.ctrl.AttemptFailed()
		return m, tea.Batch(m.hostCmds()...)
	case hostAdvanceMsg:
		m.ctrl.ShotChanged(m.ctrl.Aggregator().Current() + 1)
		return m, tea.Batch(m.hostCmds()...)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		m.handleKey(msg.String())
		return m, tea.Batch(m.hostCmds()...)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(key string) {
	agg := m.ctrl.Aggregator()
	switch key {
	case " ", "s":
		m.ctrl.AttemptStarted()
	case "g":
		m.ctrl.AttemptSucceeded()
	case "r":
		m.ctrl.AttemptFailed()
	case "b":
		m.boostHeld = !m.boostHeld
	case "n", "right":
		m.ctrl.ShotChanged(agg.Current() + 1)
	case "p", "left":
		m.ctrl.ShotChanged(agg.Current() - 1)
	case "+", "=":
		if agg.MaxAttempts() < maxAttemptsCap {
			m.ctrl.SetMaxAttempts(agg.MaxAttempts() + 1)
		}
	case "-":
		m.ctrl.SetMaxAttempts(agg.MaxAttempts() - 1)
	case "e":
		m.ctrl.SetEnabled(!m.ctrl.Enabled())
	case "R":
		m.ctrl.SessionResetRequested()
		m.lastOutcome = nil
	case "L":
		m.ctrl.LifetimeClearRequested()
	}
}

func (m *Model) hostCmds() []tea.Cmd {
	msgs := m.host.drain()
	cmds := make([]tea.Cmd, 0, len(msgs))
	for _, msg := range msgs {
		msg := msg
		cmds = append(cmds, tea.Tick(hostEchoDelay, func(time.Time) tea.Msg {
			return msg
		}))
	}
	return cmds
}

// View implements tea.Model.
func (m *Model) View() string {
	agg := m.ctrl.Aggregator()
	if agg.PackID() == "" {
		return "No training pack loaded."
	}
	sections := []string{
		m.renderHeader(),
		panelStyle.Render(m.renderCurrent()),
		m.renderTable(),
		m.renderFooter(),
	}
	content := strings.Join(sections, "\n")
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, content)
}

func (m *Model) renderHeader() string {
	agg := m.ctrl.Aggregator()
	boost := mutedStyle.Render("boost off")
	if m.boostHeld {
		boost = boostOnStyle.Render("BOOST")
	}
	attempt := mutedStyle.Render("waiting for start")
	if agg.AttemptLive() {
		attempt = goodStyle.Render("attempt live")
	}
	enabled := ""
	if !m.ctrl.Enabled() {
		enabled = "  " + badStyle.Render("tracking paused")
	}
	return fmt.Sprintf("%s  %s  %s%s",
		titleStyle.Render(fmt.Sprintf("%s · shot %d/%d", agg.PackID(), agg.Current()+1, agg.TotalShots())),
		attempt,
		boost,
		enabled,
	)
}

func (m *Model) renderCurrent() string {
	agg := m.ctrl.Aggregator()
	s := agg.Shot(agg.Current())
	lt := s.Lifetime
	lines := []string{
		fmt.Sprintf("Attempts %s  Successes %s  Consistency %s",
			valueStyle.Render(fmt.Sprintf("%d/%d", s.Attempts, agg.MaxAttempts())),
			valueStyle.Render(fmt.Sprintf("%d", s.Successes)),
			valueStyle.Render(fmt.Sprintf("%.1f%%", stats.Consistency(s.Successes, s.Attempts)*100)),
		),
		m.bar.ViewAs(float64(s.Attempts) / float64(agg.MaxAttempts())),
		fmt.Sprintf("Boost this attempt %.1f  session %.1f  min %s",
			agg.RunningBoost(), s.TotalBoostUsed, stats.FormatBoost(s.MinSuccessfulBoostUsed)),
		mutedStyle.Render(fmt.Sprintf("Lifetime best %d/%d  boost %.1f  min %s",
			lt.BestSuccesses, lt.AttemptsAtBest, lt.TotalBoostAtBest, stats.FormatBoost(lt.MinBoost))),
	}
	if m.lastOutcome != nil {
		label := badStyle.Render("miss")
		if m.lastOutcome.Success {
			label = goodStyle.Render("goal")
		}
		line := fmt.Sprintf("Last: %s on shot %d (%.1f boost)", label, m.lastOutcome.ShotIndex+1, m.lastOutcome.Boost)
		if m.lastOutcome.RunComplete {
			line += "  run complete"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTable() string {
	var buf bytes.Buffer
	if err := stats.RenderSessionTable(&buf, m.ctrl.Aggregator()); err != nil {
		return badStyle.Render(fmt.Sprintf("Failed to render stats: %v", err))
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{
		"start: space",
		"goal: g",
		"reset: r",
		"boost: b",
		"shot: p/n",
		fmt.Sprintf("max %d: -/+", m.ctrl.Aggregator().MaxAttempts()),
		"pause: e",
		"session reset: R",
		"clear lifetime: L",
		"quit: q",
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

