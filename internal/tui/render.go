// Package tui provides terminal rendering and interactive browsing of result sets.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

const maxCellWidth = 40

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))

	nullStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Faint(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// RenderTable renders records as a text table. Columns are the union of all
// record columns in first-seen order; missing cells are blank.
func RenderTable(records []datastore.Record) string {
	if len(records) == 0 {
		return footerStyle.Render("(no rows)")
	}

	columns := datastore.UnionColumns(records)
	cells := make([][]string, len(records))
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = lipgloss.Width(col)
	}
	for r, record := range records {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			text := ""
			if v, ok := record.Get(col); ok {
				text = CellText(v)
			}
			cells[r][i] = text
			if w := lipgloss.Width(text); w > widths[i] {
				widths[i] = w
			}
		}
	}

	sep := borderStyle.Render(" │ ")
	var b strings.Builder

	header := make([]string, len(columns))
	rule := make([]string, len(columns))
	for i, col := range columns {
		header[i] = headerStyle.Render(pad(col, widths[i]))
		rule[i] = strings.Repeat("─", widths[i])
	}
	b.WriteString(strings.Join(header, sep))
	b.WriteByte('\n')
	b.WriteString(borderStyle.Render(strings.Join(rule, "─┼─")))
	b.WriteByte('\n')

	for r, record := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			text := pad(cells[r][i], widths[i])
			if v, ok := record.Get(col); ok && v.IsNull() {
				text = nullStyle.Render(text)
			}
			row[i] = text
		}
		b.WriteString(strings.Join(row, sep))
		b.WriteByte('\n')
	}

	noun := "rows"
	if len(records) == 1 {
		noun = "row"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("%d %s", len(records), noun)))
	return b.String()
}

// CellText is the single-line display form of a value, truncated to maxCellWidth.
func CellText(v datastore.Value) string {
	return truncate(v.String(), maxCellWidth)
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if width <= 0 || len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
