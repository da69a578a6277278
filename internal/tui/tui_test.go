package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

func sampleRecords() []datastore.Record {
	return []datastore.Record{
		datastore.NewRecord(
			datastore.Col("id", datastore.Int(1)),
			datastore.Col("name", datastore.Text("Alice")),
			datastore.Col("email", datastore.Text("alice@example.com")),
		),
		datastore.NewRecord(
			datastore.Col("id", datastore.Int(2)),
			datastore.Col("name", datastore.Text("Bob")),
			datastore.Col("email", datastore.Null()),
			datastore.Col("age", datastore.Int(25)),
		),
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sampleRecords())
	lines := strings.Split(out, "\n")

	assert.Equal(t, 5, len(lines))
	for _, want := range []string{"id", "name", "email", "age"} {
		assert.Contains(t, lines[0], want)
	}
	assert.Contains(t, lines[1], "┼")
	assert.Contains(t, lines[2], "alice@example.com")
	assert.Contains(t, lines[3], "NULL")
	assert.Contains(t, lines[3], "25")
	assert.Equal(t, "2 rows", lines[4])

	// header, rule and rows line up
	width := lipgloss.Width(lines[0])
	for _, line := range lines[1:4] {
		assert.Equal(t, width, lipgloss.Width(line))
	}
}

func TestRenderTableEmptyAndSingle(t *testing.T) {
	assert.Equal(t, "(no rows)", RenderTable(nil))

	out := RenderTable(sampleRecords()[:1])
	assert.True(t, strings.HasSuffix(out, "1 row"))
}

func TestCellTextTruncates(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := CellText(datastore.Text(long))
	assert.Equal(t, maxCellWidth, len(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "a b", CellText(datastore.Text("a\n  b")))
	assert.Equal(t, "x'ff'", CellText(datastore.Blob([]byte{0xff})))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 20, clamp(20, 0, 5))
	assert.Equal(t, 10, clamp(20, 10, 5))
	assert.Equal(t, 5, clamp(20, 2, 5))
	assert.Equal(t, 20, clamp(20, 50, 5))
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestBrowserNavigationAndDetail(t *testing.T) {
	m := newBrowser("users", sampleRecords())
	assert.Equal(t, []string{"id", "name", "email", "age"}, m.columns)
	assert.Contains(t, m.View(), "users (2 rows)")

	_, _ = m.Update(key("down"))
	assert.Equal(t, 1, m.table.Cursor())

	_, cmd := m.Update(key("enter"))
	assert.True(t, m.detail)
	assert.True(t, cmd == nil)
	view := m.View()
	assert.Contains(t, view, "Bob")
	assert.Contains(t, view, "NULL")
	assert.NotContains(t, view, "Alice")

	// navigation keys are ignored while the detail view is open
	_, _ = m.Update(key("down"))
	assert.Equal(t, 1, m.table.Cursor())

	_, cmd = m.Update(key("esc"))
	assert.False(t, m.detail)
	assert.True(t, cmd == nil)
}

func TestBrowserQuitKeys(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		m := newBrowser("users", sampleRecords())
		_, cmd := m.Update(key(k))
		assert.True(t, cmd != nil, k)
		assert.Equal(t, tea.Quit(), cmd(), k)
	}
}

func TestBrowse(t *testing.T) {
	orig := runProgram
	t.Cleanup(func() { runProgram = orig })

	var got tea.Model
	runProgram = func(m tea.Model) (tea.Model, error) {
		got = m
		return m, nil
	}
	assert.NoError(t, Browse("users", sampleRecords()))
	b, ok := got.(*browser)
	assert.True(t, ok)
	assert.Equal(t, 2, len(b.records))

	runProgram = func(m tea.Model) (tea.Model, error) {
		return nil, errors.New("no tty")
	}
	assert.Error(t, Browse("users", sampleRecords()))

	got = nil
	assert.NoError(t, Browse("users", nil))
	assert.True(t, got == nil, "empty results do not start a program")
}
