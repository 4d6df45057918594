package main

import (
	"fmt"
	"strings"

	"github.com/cuemby/strata/pkg/engine"
)

// printResult renders a SystemOpResult as a left-aligned, padded table,
// the same plain-text shape cmd/warren's `list`/`inspect` verbs print
// services and nodes in.
func printResult(res engine.SystemOpResult) {
	widths := make([]int, len(res.Headers))
	for i, h := range res.Headers {
		widths[i] = len(h)
	}
	for _, row := range res.Rows {
		for i, v := range row {
			if s := fmt.Sprintf("%v", v); len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printRow(res.Headers, widths)
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		printRow(cells, widths)
	}
	if len(res.Rows) == 0 {
		fmt.Println("(no rows)")
	}
}

func printRow(cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], c)
	}
	fmt.Println(strings.Join(parts, "  "))
}
