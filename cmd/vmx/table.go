package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// renderRows prints a rounded table when stdout is a terminal and plain
// tab-separated lines otherwise, so piped output stays parseable.
func renderRows(headers []string, rows [][]string) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		for _, row := range rows {
			fmt.Println(strings.Join(row, "\t"))
		}
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	tw.Render()
}
