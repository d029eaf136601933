// Package statsui provides the Bubble Tea lifetime stats browser.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/ctrainer/internal/stats"
)

const (
	tabOverview = iota
	tabShots
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// savedAtReporter is implemented by stores that know when they were last written.
type savedAtReporter interface {
	UpdatedAt(ctx context.Context) (time.Time, bool, error)
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	loader stats.BlobLoader

	report  stats.Report
	errMsg  string
	savedAt time.Time

	tabs      []string
	activeTab int
	overview  viewport.Model
	shotTable table.Model

	// packIndex selects the pack shown on the shots tab among the
	// packs that match the filter.
	packIndex  int
	packFilter string

	width  int
	height int

	filterMode  bool
	filterInput textinput.Model
}

// NewModel constructs a stats UI model. A non-empty packID preselects the
// pack filter, which matches any pack id containing it.
func NewModel(loader stats.BlobLoader, packID string) *Model {
	m := &Model{
		loader:     loader,
		tabs:       []string{"Overview", "Shots"},
		packFilter: packID,
		overview:   viewport.New(0, 0),
	}
	m.filterInput = newFilterInput("Pack: ")
	m.shotTable = buildShotTable(nil, 0, 1)
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			m.movePack(-1)
			return m, nil
		case "]":
			m.movePack(1)
			return m, nil
		case "/":
			m.filterMode = true
			m.filterInput.SetValue(m.packFilter)
			return m, m.filterInput.Focus()
		case "r":
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "g", "home":
			if m.activeTab == tabShots {
				m.shotTable.GotoTop()
			} else {
				m.overview.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabShots {
				m.shotTable.GotoBottom()
			} else {
				m.overview.GotoBottom()
			}
			return m, nil
		default:
			var cmd tea.Cmd
			if m.activeTab == tabShots {
				m.shotTable, cmd = m.shotTable.Update(msg)
				return m, cmd
			}
			m.overview, cmd = m.overview.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = "all packs"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	m.applyShotTable(bodyHeight)
	m.filterInput.Width = maxInt(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabShots {
		m.shotTable.Focus()
	} else {
		m.shotTable.Blur()
	}
}

func (m *Model) movePack(delta int) {
	count := len(m.report.Packs)
	if count == 0 {
		return
	}
	m.packIndex = (m.packIndex + delta + count) % count
	_, bodyHeight, _ := m.layoutHeights()
	m.applyShotTable(bodyHeight)
}

// SelectedPack returns the pack shown on the shots tab.
func (m *Model) SelectedPack() (stats.PackSummary, bool) {
	if m.packIndex < 0 || m.packIndex >= len(m.report.Packs) {
		return stats.PackSummary{}, false
	}
	return m.report.Packs[m.packIndex], true
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filter := m.packFilter
	if filter == "" {
		filter = "all"
	}
	pack := "-"
	if p, ok := m.SelectedPack(); ok {
		pack = fmt.Sprintf("%s (%d/%d)", p.PackID, m.packIndex+1, len(m.report.Packs))
	}
	saved := "never"
	if !m.savedAt.IsZero() {
		saved = m.savedAt.Local().Format("2006-01-02 15:04")
	}
	summary := truncateLine(fmt.Sprintf("Filter: %s  Pack: %s  Last saved: %s", filter, pack, saved), m.width)
	return tabs + "\n" + padLines(headerStyle.Render(summary), m.width)
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Pack: [/]  Scroll: up/down  Filter: /  Reload: r  Quit: q"
	if m.filterMode {
		help = "enter: apply  esc: cancel"
	}
	out := headerStyle.Render(help)
	if m.errMsg != "" {
		out += "\n" + errorStyle.Render(m.errMsg)
	}
	return out
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines("Show packs whose id contains (empty for all)\n"+m.filterInput.View(), m.width, height)
	}
	if m.activeTab == tabShots {
		if len(m.report.Packs) == 0 {
			return fitLines("No lifetime records found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.shotTable.View()), m.width, height)
	}
	return fitLines(m.overview.View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.loader, "")
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
	} else {
		m.errMsg = ""
		m.report = report.Matching(m.packFilter)
	}
	if m.packIndex >= len(m.report.Packs) {
		m.packIndex = 0
	}
	m.savedAt = time.Time{}
	if r, ok := m.loader.(savedAtReporter); ok {
		if at, found, err := r.UpdatedAt(context.Background()); err == nil && found {
			m.savedAt = at
		}
	}
	m.renderOverview()
}

func (m *Model) renderOverview() {
	if m.errMsg != "" {
		m.overview.SetContent("Failed to load stats.")
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.report.Packs, width))
}

func renderOverview(packs []stats.PackSummary, width int) string {
	if len(packs) == 0 {
		return "No lifetime records found."
	}
	var buf bytes.Buffer
	if err := stats.RenderSummary(&buf, packs); err != nil {
		return fmt.Sprintf("Failed to render summary: %v", err)
	}
	return strings.TrimRight(renderSummaryCards(packs, width)+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(packs []stats.PackSummary, width int) string {
	shots := 0
	var total float64
	bestPack := packs[0]
	for _, p := range packs {
		shots += p.Shots
		total += p.Consistency
		if p.Consistency > bestPack.Consistency {
			bestPack = p
		}
	}
	cards := []string{
		metricCard("Packs", fmt.Sprintf("%d", len(packs))),
		metricCard("Shots", fmt.Sprintf("%d", shots)),
		metricCard("Avg Consistency", fmt.Sprintf("%.1f%%", total/float64(len(packs))*100)),
		metricCard("Best Pack", truncateLine(bestPack.PackID, 24)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func shotTableData(rows []stats.ShotRow) ([]table.Column, []table.Row) {
	columns := []table.Column{
		{Title: "Shot", Width: 5},
		{Title: "Best", Width: 5},
		{Title: "Attempts", Width: 8},
		{Title: "Consistency", Width: 11},
		{Title: "Boost", Width: 8},
		{Title: "Success Boost", Width: 13},
		{Title: "Min Boost", Width: 9},
	}
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		lt := r.Stats.Lifetime
		out = append(out, table.Row{
			fmt.Sprintf("%d", r.Index+1),
			fmt.Sprintf("%d", lt.BestSuccesses),
			fmt.Sprintf("%d", lt.AttemptsAtBest),
			fmt.Sprintf("%.1f%%", stats.Consistency(lt.BestSuccesses, lt.AttemptsAtBest)*100),
			fmt.Sprintf("%.1f", lt.TotalBoostAtBest),
			fmt.Sprintf("%.1f", lt.TotalSuccessfulBoostAtBest),
			stats.FormatBoost(lt.MinBoost),
		})
	}
	return columns, out
}

func buildShotTable(rows []stats.ShotRow, width, height int) table.Model {
	cols, data := shotTableData(rows)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(data),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(shotTableStyles())
	return t
}

func (m *Model) selectedRows() []stats.ShotRow {
	p, ok := m.SelectedPack()
	if !ok {
		return nil
	}
	return stats.LifetimeRows(m.report.Store[p.PackID])
}

func (m *Model) applyShotTable(height int) {
	_, rows := shotTableData(m.selectedRows())
	viewportHeight := maxInt(1, height-1)
	m.shotTable.SetRows(rows)
	m.shotTable.SetWidth(m.width)
	m.shotTable.SetHeight(viewportHeight)
	if m.shotTable.Cursor() >= len(rows) {
		m.shotTable.GotoTop()
	}
}

func shotTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.filterMode = false
		m.filterInput.Blur()
		m.packFilter = strings.TrimSpace(m.filterInput.Value())
		m.packIndex = 0
		m.refreshReport()
		m.updateLayout()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
