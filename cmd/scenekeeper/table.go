package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one report table column. Counts are right aligned.
type column struct {
	title string
	count bool
}

var (
	jobColumns = []column{
		{title: "Job"},
		{title: "Mode"},
		{title: "Scenes", count: true},
		{title: "Actions", count: true},
		{title: "Applied", count: true},
		{title: "Failed", count: true},
		{title: "Duration", count: true},
		{title: "Summary"},
	}
	reasonColumns = []column{{title: "Reason"}, {title: "Groups", count: true}}
	boxColumns    = []column{{title: "Stash box"}, {title: "Matched", count: true}}
)

// renderTable draws rows under columns. A non-empty footer is drawn as a
// totals line; short rows are padded.
func renderTable(columns []column, rows [][]string, footer []string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault

	tw.AppendHeader(padRow(columns, nil, columnTitle))
	for _, row := range rows {
		tw.AppendRow(padRow(columns, row, nil))
	}
	if len(footer) > 0 {
		tw.AppendFooter(padRow(columns, footer, nil))
	}

	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, c := range columns {
		align := text.AlignLeft
		if c.count {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func columnTitle(c column) string { return c.title }

// padRow builds a table row with one cell per column. When cell is set it
// supplies the value instead of values.
func padRow(columns []column, values []string, cell func(column) string) table.Row {
	row := make(table.Row, len(columns))
	for i, c := range columns {
		switch {
		case cell != nil:
			row[i] = cell(c)
		case i < len(values):
			row[i] = values[i]
		default:
			row[i] = ""
		}
	}
	return row
}
