package core

import "strings"

type (
	// RawTable is a sheet as read from a data source: a header row followed
	// by data rows. Cells are strings; rows may be ragged.
	RawTable struct {
		Name   string
		Header []string
		Rows   [][]string
	}

	// RawDataset is the output contract of every RawDataSource.
	RawDataset struct {
		Ledger  RawTable
		Targets RawTable
	}
)

// TableFromValues splits a values matrix into header and rows. Leading
// rows that are entirely blank are ignored when looking for the header.
func TableFromValues(name string, values [][]string) RawTable {
	t := RawTable{Name: name}
	i := 0
	for i < len(values) && BlankRow(values[i]) {
		i++
	}
	if i == len(values) {
		return t
	}
	t.Header = values[i]
	t.Rows = values[i+1:]
	return t
}

// Cell returns the trimmed cell at idx, or "" when the row is too short.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// BlankRow reports whether every cell of row is empty or whitespace.
func BlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
