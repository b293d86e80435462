package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// TableColumn represents a column in a table
type TableColumn struct {
	Header string
	Key    string // key to extract from data map
	Width  int    // calculated width
}

// renderTable renders a table with dynamic column width calculation
func renderTable(columns []TableColumn, data []map[string]string) {
	if len(data) == 0 {
		fmt.Println("No data to display")
		return
	}

	for i := range columns {
		columns[i].Width = len(columns[i].Header)
		for _, row := range data {
			if value, exists := row[columns[i].Key]; exists {
				if len(value) > columns[i].Width {
					columns[i].Width = len(value)
				}
			}
		}
	}

	header := color.New(color.Bold)
	var headerParts []string
	for _, col := range columns {
		headerParts = append(headerParts, fmt.Sprintf("%-*s", col.Width, col.Header))
	}
	header.Println(strings.Join(headerParts, "  "))

	for _, row := range data {
		var rowParts []string
		for _, col := range columns {
			rowParts = append(rowParts, fmt.Sprintf("%-*s", col.Width, row[col.Key]))
		}
		fmt.Println(strings.Join(rowParts, "  "))
	}
}
