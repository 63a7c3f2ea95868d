package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// column is one table column of a listing: a header and how to render an item.
type column[T any] struct {
	header string
	align  columnAlignment
	value  func(T) string
}

// printList writes items as a JSON array with --json, otherwise as a table.
// emptyMsg is printed instead of an empty table.
func printList[T any](cmd *cobra.Command, asJSON bool, items []T, emptyMsg string, columns []column[T]) error {
	if asJSON {
		if items == nil {
			items = []T{}
		}
		return writeJSON(cmd, items)
	}
	w := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(w, emptyMsg)
		return nil
	}
	headers := make([]string, len(columns))
	aligns := make([]columnAlignment, len(columns))
	for i, c := range columns {
		headers[i] = c.header
		aligns[i] = c.align
	}
	rows := make([][]string, len(items))
	for r, item := range items {
		rows[r] = make([]string, len(columns))
		for i, c := range columns {
			rows[r][i] = c.value(item)
		}
	}
	fmt.Fprintln(w, renderTable(w, headers, rows, aligns))
	return nil
}

// writeJSON encodes v as indented JSON to stdout. Joint names and clip paths
// are written as-is rather than HTML-escaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable draws rows with rounded borders on a terminal and plain ASCII
// borders otherwise.
func renderTable(w io.Writer, headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleDefault)
	if isTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	}
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}
	configs := make([]table.ColumnConfig, len(headers))
	for i := range headers {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if i < len(aligns) && aligns[i] == alignRight {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// toRow pads or truncates cells to width.
func toRow(cells []string, width int) table.Row {
	r := make(table.Row, width)
	for i := range width {
		if i < len(cells) {
			r[i] = cells[i]
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
