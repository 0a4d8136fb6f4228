package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/livefir/livegui"
)

const maxLines = 500

// serverMsg carries one frame read from the socket.
type serverMsg struct {
	raw string
	at  time.Time
}

// closedMsg reports that the read loop ended.
type closedMsg struct {
	err error
}

type styles struct {
	title   lipgloss.Style
	inbound lipgloss.Style
	sent    lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	panel   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		inbound: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		sent:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// model shows announced nodes and the sync stream, and sends typed lines.
type model struct {
	url    string
	send   func(string) error
	styles styles

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int

	events map[int][]string // node id -> announced events
	props  map[int]livegui.Props
	lines  []string
	closed bool
	err    error
}

func newModel(url string, send func(string) error) model {
	in := textinput.New()
	in.Placeholder = "click:1 or sync:2->{\"value\":\"x\"}"
	in.Prompt = "> "
	in.CharLimit = 4096
	in.Focus()

	vp := viewport.New(80, 20)

	return model{
		url:      url,
		send:     send,
		styles:   newStyles(),
		input:    in,
		viewport: vp,
		events:   map[int][]string{},
		props:    map[int]livegui.Props{},
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(msg.Width-4, 20)
		m.viewport.Height = max(msg.Height-lipgloss.Height(m.header())-6, 5)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit(strings.TrimSpace(m.input.Value()))
			m.input.Reset()
			m.refresh()
			return m, nil
		}

	case serverMsg:
		m.receive(msg)
		m.refresh()
		return m, nil

	case closedMsg:
		m.closed = true
		m.err = msg.err
		m.appendLine(m.styles.failure.Render(fmt.Sprintf("connection closed: %v", msg.err)))
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) submit(line string) {
	if line == "" {
		return
	}
	if m.closed {
		m.appendLine(m.styles.failure.Render("not connected"))
		return
	}
	if _, err := livegui.ParseMessage(line); err != nil {
		// sent anyway; the server logs and counts the rejection
		m.appendLine(m.styles.muted.Render("warning: " + err.Error()))
	}
	if err := m.send(line); err != nil {
		m.appendLine(m.styles.failure.Render("send failed: " + err.Error()))
		return
	}
	m.appendLine(m.styles.sent.Render("→ " + line))
}

func (m *model) receive(msg serverMsg) {
	stamp := m.styles.muted.Render(msg.at.Format("15:04:05"))
	parsed, err := livegui.ParseServerMessage(msg.raw)
	if err != nil {
		m.appendLine(stamp + " " + m.styles.failure.Render("unparseable: "+msg.raw))
		return
	}

	switch p := parsed.(type) {
	case livegui.AnnounceMessage:
		m.events[p.ID] = p.Events
	case livegui.SyncMessage:
		m.props[p.ID] = p.Payload
	}
	m.appendLine(stamp + " " + m.styles.inbound.Render("← "+msg.raw))
}

func (m *model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
}

func (m *model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// nodeIDs returns every id seen in an announcement or sync, ascending.
func (m model) nodeIDs() []int {
	seen := map[int]bool{}
	for id := range m.events {
		seen[id] = true
	}
	for id := range m.props {
		seen[id] = true
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m model) header() string {
	status := m.styles.inbound.Render("connected")
	if m.closed {
		status = m.styles.failure.Render("closed")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n", m.styles.title.Render("livegui-watch"), m.url, status)
	for _, id := range m.nodeIDs() {
		fmt.Fprintf(&b, "  %3d", id)
		if ev := m.events[id]; len(ev) > 0 {
			fmt.Fprintf(&b, "  [%s]", strings.Join(ev, " "))
		}
		if p, ok := m.props[id]; ok {
			if v, ok := p[livegui.PropValue]; ok {
				fmt.Fprintf(&b, "  value=%v", v)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.styles.panel.Render(m.viewport.View()),
		m.input.View(),
		m.styles.muted.Render("enter to send · esc to quit"),
	)
}
