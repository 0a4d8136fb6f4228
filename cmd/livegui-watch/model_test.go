package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func typeLine(t *testing.T, m model, line string) model {
	t.Helper()
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestModelTracksAnnouncementsAndSyncs(t *testing.T) {
	m := newModel("ws://localhost:80/ws", func(string) error { return nil })
	now := time.Now()

	m = update(t, m, serverMsg{raw: `add_event:1->["click"]`, at: now})
	m = update(t, m, serverMsg{raw: `add_event:3->["input","change"]`, at: now})
	m = update(t, m, serverMsg{raw: `sync:1->{"value":"clicked"}`, at: now})

	assert.Equal(t, []int{1, 3}, m.nodeIDs())
	assert.Equal(t, []string{"input", "change"}, m.events[3])
	assert.Equal(t, "clicked", m.props[1]["value"])

	header := m.header()
	assert.Contains(t, header, "[click]")
	assert.Contains(t, header, "value=clicked")
	assert.Len(t, m.lines, 3)
}

func TestModelFlagsUnparseableFrames(t *testing.T) {
	m := newModel("ws://x/ws", func(string) error { return nil })
	m = update(t, m, serverMsg{raw: "garbage", at: time.Now()})

	require.Len(t, m.lines, 1)
	assert.Contains(t, m.lines[0], "unparseable")
	assert.Empty(t, m.nodeIDs())
}

func TestModelSendsTypedLines(t *testing.T) {
	var sent []string
	m := newModel("ws://x/ws", func(line string) error {
		sent = append(sent, line)
		return nil
	})

	m = typeLine(t, m, "click:1")
	m = typeLine(t, m, "   ")

	assert.Equal(t, []string{"click:1"}, sent)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.lines, 1)
	assert.Contains(t, m.lines[0], "click:1")
}

func TestModelWarnsOnInvalidLine(t *testing.T) {
	var sent []string
	m := newModel("ws://x/ws", func(line string) error {
		sent = append(sent, line)
		return nil
	})

	m = typeLine(t, m, "not-a-message")

	assert.Equal(t, []string{"not-a-message"}, sent)
	require.Len(t, m.lines, 2)
	assert.Contains(t, m.lines[0], "malformed message")
}

func TestModelSendFailure(t *testing.T) {
	m := newModel("ws://x/ws", func(string) error { return errors.New("broken pipe") })
	m = typeLine(t, m, "click:1")

	require.Len(t, m.lines, 1)
	assert.Contains(t, m.lines[0], "send failed: broken pipe")
}

func TestModelClosed(t *testing.T) {
	called := false
	m := newModel("ws://x/ws", func(string) error { called = true; return nil })

	m = update(t, m, closedMsg{err: errors.New("EOF")})
	assert.True(t, m.closed)
	assert.Contains(t, m.header(), "closed")

	m = typeLine(t, m, "click:1")
	assert.False(t, called)
	assert.True(t, strings.Contains(m.lines[len(m.lines)-1], "not connected"))
}

func TestModelQuit(t *testing.T) {
	m := newModel("ws://x/ws", nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelView(t *testing.T) {
	m := newModel("ws://x/ws", nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, serverMsg{raw: `add_event:1->["click"]`, at: time.Now()})

	view := m.View()
	assert.Contains(t, view, "livegui-watch")
	assert.Contains(t, view, "esc to quit")
}
