package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderPRTable renders a bordered table of PR details
func RenderPRTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(TableBorderStyle).
		BorderColumn(true).
		StyleFunc(tableStyleFunc).
		Headers(headers...)
	for _, row := range rows {
		t.Row(row...)
	}
	return t.Render()
}

// tableStyleFunc provides default styling for table cells
func tableStyleFunc(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return TableHeaderStyle
	}
	return TableCellStyle
}
