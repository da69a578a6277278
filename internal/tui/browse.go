package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

const (
	defaultTableHeight = 20
	minTableHeight     = 5
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m, tea.WithAltScreen()).Run()
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	detailKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110"))

	detailBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

type browser struct {
	table   table.Model
	title   string
	columns []string
	records []datastore.Record
	detail  bool
}

func newBrowser(title string, records []datastore.Record) *browser {
	columns := datastore.UnionColumns(records)

	cols := make([]table.Column, len(columns))
	for i, col := range columns {
		cols[i] = table.Column{Title: col, Width: lipgloss.Width(col)}
	}
	rows := make([]table.Row, len(records))
	for r, record := range records {
		row := make(table.Row, len(columns))
		for i, col := range columns {
			if v, ok := record.Get(col); ok {
				row[i] = CellText(v)
			}
			if w := lipgloss.Width(row[i]); w > cols[i].Width {
				cols[i].Width = w
			}
		}
		rows[r] = row
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("62")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(clamp(defaultTableHeight, len(rows)+1, minTableHeight)),
		table.WithStyles(styles),
	)

	return &browser{
		table:   t,
		title:   title,
		columns: columns,
		records: records,
	}
}

func (m *browser) Init() tea.Cmd { return nil }

func (m *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.detail {
				m.detail = false
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			m.detail = !m.detail
			return m, nil
		}
		if m.detail {
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.table.SetHeight(clamp(defaultTableHeight, msg.Height-6, minTableHeight))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *browser) View() string {
	header := titleStyle.Render(fmt.Sprintf("%s (%d rows)", m.title, len(m.records)))
	if m.detail {
		help := helpStyle.Render("Enter/Esc back | q quit")
		return lipgloss.JoinVertical(lipgloss.Left, header, m.detailView(), help)
	}
	help := helpStyle.Render("Up/Down navigate | Enter details | q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.table.View(), help)
}

func (m *browser) detailView() string {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return ""
	}
	record := m.records[idx]

	keyWidth := 0
	for _, col := range m.columns {
		if w := lipgloss.Width(col); w > keyWidth {
			keyWidth = w
		}
	}

	lines := make([]string, 0, len(m.columns))
	for _, col := range m.columns {
		value := ""
		if v, ok := record.Get(col); ok {
			value = v.String()
		}
		lines = append(lines, detailKeyStyle.Render(pad(col, keyWidth))+"  "+value)
	}
	return detailBoxStyle.Render(strings.Join(lines, "\n"))
}

// Browse shows records in an interactive, scrollable table until the user quits.
func Browse(title string, records []datastore.Record) error {
	if len(records) == 0 {
		fmt.Println(RenderTable(records))
		return nil
	}
	if _, err := runProgram(newBrowser(title, records)); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

func clamp(defaultValue, available, minimum int) int {
	height := defaultValue
	if available > 0 && available < defaultValue {
		height = available
	}
	if height < minimum {
		height = minimum
	}
	return height
}
