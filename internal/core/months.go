package core

import "strings"

// monthLabels maps the three-letter labels used by the targets sheet
// to month numbers.
var monthLabels = map[string]int{
	"jan": 1, "fev": 2, "mar": 3, "abr": 4, "mai": 5, "jun": 6,
	"jul": 7, "ago": 8, "set": 9, "out": 10, "nov": 11, "dez": 12,
}

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthFromLabel resolves a target month label such as " Mar " to 3.
// The boolean is false for unknown labels; callers must not guess a month.
func MonthFromLabel(label string) (int, bool) {
	m, ok := monthLabels[strings.ToLower(strings.TrimSpace(label))]
	return m, ok
}

// MonthName returns the Portuguese month name for 1-12, or "" otherwise.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}
