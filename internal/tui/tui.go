// Package tui provides a Bubble Tea TUI that follows the live presence feed.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/VanillaViking/neopresence/internal/presence"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	addStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	delStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabPresence tabID = iota
	tabFiles
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{"Presence", "Files", "Timeline"}

const (
	maxHistory     = 200
	reconnectDelay = 2 * time.Second
)

// ── Feed plumbing ────────────────────

// Source yields presence updates. A nil activity means the presence was
// cleared.
type Source interface {
	Next(ctx context.Context) (*presence.Activity, error)
	Close() error
}

// DialFunc opens a new Source.
type DialFunc func(ctx context.Context) (Source, error)

type connectedMsg struct{ src Source }

type activityMsg struct {
	activity *presence.Activity
	at       time.Time
}

type feedErrMsg struct{ err error }

type reconnectMsg struct{}

type tickMsg time.Time

type historyEntry struct {
	at       time.Time
	activity *presence.Activity
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the monitor.
type Model struct {
	ctx  context.Context
	dial DialFunc
	addr string
	now  func() time.Time

	src       Source
	connected bool
	lastErr   error
	activity  *presence.Activity
	history   []historyEntry

	activeTab  tabID
	viewports  [tabCount]viewport.Model
	width      int
	height     int
	ready      bool
	sortAsc    bool
	fileCursor int
}

// New creates a monitor for the feed at addr.
func New(ctx context.Context, addr string, dial DialFunc) Model {
	return Model{
		ctx:  ctx,
		dial: dial,
		addr: addr,
		now:  time.Now,
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.connect(), tick())
}

func (m Model) connect() tea.Cmd {
	ctx, dial := m.ctx, m.dial
	return func() tea.Msg {
		src, err := dial(ctx)
		if err != nil {
			return feedErrMsg{err}
		}
		return connectedMsg{src}
	}
}

func (m Model) listen() tea.Cmd {
	ctx, src, now := m.ctx, m.src, m.now
	return func() tea.Msg {
		a, err := src.Next(ctx)
		if err != nil {
			return feedErrMsg{err}
		}
		return activityMsg{activity: a, at: now()}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.src != nil {
				m.src.Close()
			}
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.refresh()
				m.viewports[tabTimeline].GotoTop()
			}
		case "up", "k":
			if m.activeTab == tabFiles && m.fileCursor > 0 {
				m.fileCursor--
				m.refresh()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabFiles && m.fileCursor < m.fileCount()-1 {
				m.fileCursor++
				m.refresh()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil

	case connectedMsg:
		m.src = msg.src
		m.connected = true
		m.lastErr = nil
		m.refresh()
		return m, m.listen()

	case activityMsg:
		m.activity = msg.activity
		m.history = append(m.history, historyEntry{at: msg.at, activity: msg.activity})
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		if n := m.fileCount(); m.fileCursor >= n {
			m.fileCursor = max(n-1, 0)
		}
		m.refresh()
		return m, m.listen()

	case feedErrMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		if m.src != nil {
			m.src.Close()
			m.src = nil
		}
		m.connected = false
		m.lastErr = msg.err
		m.refresh()
		return m, tea.Tick(reconnectDelay, func(time.Time) tea.Msg { return reconnectMsg{} })

	case reconnectMsg:
		return m, m.connect()

	case tickMsg:
		if m.ready {
			m.viewports[tabPresence].SetContent(m.renderTab(tabPresence))
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	// ── Row 1: title bar ──────────────────────────────────────────────────────
	title := titleStyle.Width(m.width).Render("  neopresence  " + m.addr)

	// ── Row 2: tab bar ────────────────────────────────────────────────────────
	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	// ── Row 3…N-1: scrollable content ────────────────────────────────────────
	content := m.viewports[m.activeTab].View()

	// ── Row N: status / hint bar ──────────────────────────────────────────────
	state := onlineStyle.Render("● live")
	if !m.connected {
		state = offlineStyle.Render("● offline")
	}
	hint := "  ←/→ tab  ↑/↓ scroll  1-3 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	case tabFiles:
		hint += "  ↑/↓ select"
	}
	pad := m.width - lipgloss.Width(hint) - lipgloss.Width(state) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + state)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	for i := tabID(0); i < tabCount; i++ {
		m.viewports[i].SetContent(m.renderTab(i))
	}
}

func (m *Model) fileCount() int {
	if m.activity == nil {
		return 0
	}
	return len(m.activity.FileStats)
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabPresence:
		return m.renderPresence()
	case tabFiles:
		return m.renderFiles()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func counts(add, del int) string {
	return addStyle.Render(fmt.Sprintf("+%d", add)) + " " + delStyle.Render(fmt.Sprintf("-%d", del))
}

func (m *Model) renderPresence() string {
	var sb strings.Builder
	sb.WriteString(heading("Presence"))

	if !m.connected {
		msg := "  connecting to " + m.addr + "…"
		if m.lastErr != nil {
			msg = "  feed unavailable: " + m.lastErr.Error()
		}
		sb.WriteString(dimStyle.Render(msg) + "\n")
		if m.activity == nil {
			return sb.String()
		}
		sb.WriteString("\n")
	}
	a := m.activity
	if a == nil {
		sb.WriteString(dimStyle.Render("  (no presence)") + "\n")
		return sb.String()
	}

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-12s", label)) + "  " + value + "\n")
	}
	row("Details:", a.Details)
	row("State:", a.State)
	row("Changes:", counts(a.Additions, a.Deletions))
	if !a.StartedAt.IsZero() {
		row("Started:", a.StartedAt.Format("2006-01-02 15:04:05 MST"))
		row("Elapsed:", presence.Elapsed(a.StartedAt, m.now()))
	}
	if a.RepoURL != "" {
		row("Repository:", a.RepoURL)
	}
	if a.SessionID != "" {
		row("Session:", dimStyle.Render(a.SessionID))
	}
	return sb.String()
}

func (m *Model) renderFiles() string {
	var sb strings.Builder
	n := m.fileCount()
	sb.WriteString(heading(fmt.Sprintf("Files (%d)", n)))
	if n == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}

	width := 0
	for _, f := range m.activity.FileStats {
		width = max(width, len(f.Name))
	}
	for i, f := range m.activity.FileStats {
		marker := "  "
		if f.Name == m.activity.ActiveFile {
			marker = onlineStyle.Render("● ")
		}
		row := fmt.Sprintf("  %s%-*s  %s", marker, width, f.Name, counts(f.Additions, f.Deletions))
		if i == m.fileCursor {
			row = selectedRowStyle.Width(max(m.width-2, 1)).Render(row)
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder

	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))

	events := make([]historyEntry, len(m.history))
	copy(events, m.history)
	if m.sortAsc {
		sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })
	} else {
		sort.SliceStable(events, func(i, j int) bool { return events[i].at.After(events[j].at) })
	}

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (no updates received yet)") + "\n")
		return sb.String()
	}

	for _, ev := range events {
		ts := timeStyle.Render(ev.at.Format("15:04:05"))
		if ev.activity == nil {
			sb.WriteString(ts + "  " + dimStyle.Render("cleared") + "\n")
			continue
		}
		sb.WriteString(ts + "  " + ev.activity.Details + "  " + counts(ev.activity.Additions, ev.activity.Deletions) + "\n")
	}
	return sb.String()
}

// Run starts the monitor and blocks until the user quits or ctx is done.
func Run(ctx context.Context, addr string, dial DialFunc) error {
	p := tea.NewProgram(New(ctx, addr, dial), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
