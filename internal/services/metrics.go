package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"vendas/internal/core"
)

// ComputeSnapshot filters the dataset by sel and derives the KPIs and both
// chart series. It never fails: empty selections yield zero metrics.
func ComputeSnapshot(ds core.Dataset, sel core.Selection) core.Snapshot {
	snap := core.Snapshot{
		Selection:       sel,
		TotalRevenue:    decimal.Zero,
		AverageTicket:   decimal.Zero,
		TargetValue:     decimal.Zero,
		ProgressPercent: decimal.Zero,
		DailySeries:     []core.DailyPoint{},
		TargetSplit:     core.TargetSplit{Achieved: decimal.Zero, Pending: decimal.Zero},
	}

	for _, r := range ds.Sales {
		if r.Year != sel.Year || r.Month != sel.Month {
			continue
		}
		snap.TotalRevenue = snap.TotalRevenue.Add(r.GrossRevenue)
		snap.TotalCustomers += r.CustomerCount
		if r.GrossRevenue.IsPositive() && !r.Date.IsZero() {
			snap.DailySeries = append(snap.DailySeries, core.DailyPoint{Date: r.Date, GrossRevenue: r.GrossRevenue})
		}
	}
	sort.SliceStable(snap.DailySeries, func(i, j int) bool {
		return snap.DailySeries[i].Date.Before(snap.DailySeries[j].Date)
	})

	snap.TargetValue = TargetFor(ds.Targets, sel)

	if snap.TotalCustomers > 0 {
		snap.AverageTicket = snap.TotalRevenue.Div(decimal.NewFromInt(snap.TotalCustomers))
	}
	if snap.TargetValue.IsPositive() {
		snap.HasTarget = true
		snap.ProgressPercent = snap.TotalRevenue.Div(snap.TargetValue).Mul(core.Hundred())
		snap.TargetSplit = core.TargetSplit{
			Achieved: decimal.Min(snap.TotalRevenue, snap.TargetValue),
			Pending:  decimal.Max(decimal.Zero, snap.TargetValue.Sub(snap.TotalRevenue)),
		}
	}
	return snap
}

// TargetFor sums the target values registered for sel. Rows whose month
// label did not map are never matched.
func TargetFor(targets []core.TargetRecord, sel core.Selection) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range targets {
		if !t.HasMonth || t.Year != sel.Year || t.MonthNumber != sel.Month {
			continue
		}
		sum = sum.Add(t.TargetValue)
	}
	return sum
}
