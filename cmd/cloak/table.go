package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderSpanTable renders rows under the given headers. Numeric columns
// (named in rightAligned) are right-aligned.
func renderSpanTable(headers []string, rows [][]any, rightAligned ...string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	right := make(map[string]bool, len(rightAligned))
	for _, h := range rightAligned {
		right[h] = true
	}
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i, h := range headers {
		align := text.AlignLeft
		if right[h] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.3f", score)
}
