// Package tui defines the Bubble Tea model for pluggit's live plug-in
// monitor: a table of every registered plug-in's state, refreshed on a
// ticker plus pushed immediately on every lifecycle event, alongside a
// scrolling event log. Same Elm-architecture shape as a typical Bubble Tea
// dashboard (tickMsg ticker, a viewport for scrolling log lines,
// WindowSizeMsg-driven layout), simplified down to the two views this
// domain actually has: plug-in table and event log.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pluggit/pluggit"
	v1 "github.com/pluggit/pluggit/api/v1"
)

// Config carries the dependencies the monitor needs.
type Config struct {
	Ctx *pluggit.Context
}

type pluginRow struct {
	id    string
	state v1.PluginState
}

// Model is the root Bubble Tea model.
type Model struct {
	cfg Config

	width, height int

	rows        []pluginRow
	eventVP     viewport.Model
	eventLines  []string
	lastError   error

	styles Styles

	events chan v1.Event
}

type tickMsg time.Time
type eventMsg v1.Event
type errMsg error

// New constructs a Model bound to ctx. It registers its own event listener
// on ctx so every lifecycle transition is reflected without waiting for
// the next poll tick.
func New(cfg Config) *Model {
	m := &Model{
		cfg:     cfg,
		styles:  newStyles(),
		eventVP: viewport.New(0, 0),
		events:  make(chan v1.Event, 64),
	}
	cfg.Ctx.AddEventListener(func(_ *pluggit.Context, ev v1.Event) {
		select {
		case m.events <- ev:
		default: // drop if the UI can't keep up; the next poll will resync state
		}
	})
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.waitEventCmd(), m.refreshCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.eventVP.Width = m.width
		m.eventVP.Height = m.height / 3

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		cmds = append(cmds, m.tickCmd(), m.refreshCmd())

	case rowsMsg:
		m.rows = msg

	case eventMsg:
		ev := v1.Event(msg)
		m.eventLines = append(m.eventLines, ev.String())
		if len(m.eventLines) > 500 {
			m.eventLines = m.eventLines[len(m.eventLines)-500:]
		}
		m.eventVP.SetContent(strings.Join(m.eventLines, "\n"))
		m.eventVP.GotoBottom()
		cmds = append(cmds, m.waitEventCmd(), m.refreshCmd())

	case errMsg:
		m.lastError = msg
	}

	var vpCmd tea.Cmd
	m.eventVP, vpCmd = m.eventVP.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	header := m.styles.Header.Render(" pluggit monitor ")
	table := m.renderTable()
	eventsTitle := m.styles.Title.Render("EVENTS")
	footer := m.styles.Footer.Render(" q: quit ")

	body := lipgloss.JoinVertical(lipgloss.Left, header, table, eventsTitle, m.eventVP.View(), footer)
	if m.lastError != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.styles.Error.Render(m.lastError.Error()))
	}
	return body
}

func (m *Model) renderTable() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("PLUGINS"))
	b.WriteString("\n")
	for _, r := range m.rows {
		line := fmt.Sprintf("%-32s %s", r.id, r.state)
		b.WriteString(m.styles.Row.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

type rowsMsg []pluginRow

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitEventCmd() tea.Cmd {
	return func() tea.Msg {
		ev := <-m.events
		return eventMsg(ev)
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ids := m.cfg.Ctx.ListPlugins()
		rows := make([]pluginRow, 0, len(ids))
		for _, id := range ids {
			state, _ := m.cfg.Ctx.PluginState(id)
			rows = append(rows, pluginRow{id: id, state: state})
		}
		return rowsMsg(rows)
	}
}
