package services

import (
	"sort"

	"vendas/internal/core"
)

// Years lists the distinct ledger years, most recent first. Rows without
// a usable month are not selectable and do not contribute a year.
func Years(ds core.Dataset) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0)
	for _, r := range ds.Sales {
		if r.Year <= 0 || r.Month < 1 || r.Month > 12 {
			continue
		}
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		out = append(out, r.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Months lists the distinct months present for year, in calendar order.
func Months(ds core.Dataset, year int) []int {
	var present [13]bool
	for _, r := range ds.Sales {
		if r.Year == year && r.Month >= 1 && r.Month <= 12 {
			present[r.Month] = true
		}
	}
	out := make([]int, 0, 12)
	for m := 1; m <= 12; m++ {
		if present[m] {
			out = append(out, m)
		}
	}
	return out
}

// ResolveSelection keeps the requested year and month when the ledger has
// data for them. Otherwise it falls back to the most recent year and that
// year's most recent month.
func ResolveSelection(ds core.Dataset, requested core.Selection) (core.Selection, error) {
	years := Years(ds)
	if len(years) == 0 {
		return core.Selection{}, core.ErrNoData
	}

	year := years[0]
	if contains(years, requested.Year) {
		year = requested.Year
	}
	months := Months(ds, year)
	month := months[len(months)-1]
	if contains(months, requested.Month) {
		month = requested.Month
	}
	return core.Selection{Year: year, Month: month}, nil
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
