package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendas/internal/core"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func sale(d int, revenue string, customers int64) core.SalesRecord {
	return core.SalesRecord{Date: day(d), Year: 2024, Month: 3, GrossRevenue: dec(revenue), CustomerCount: customers}
}

func target(year int, label, value string) core.TargetRecord {
	m, ok := core.MonthFromLabel(label)
	return core.TargetRecord{Year: year, MonthLabel: label, TargetValue: dec(value), MonthNumber: m, HasMonth: ok}
}

var march = core.Selection{Year: 2024, Month: 3}

func TestComputeSnapshotWithTarget(t *testing.T) {
	ds := core.Dataset{
		Sales:   []core.SalesRecord{sale(1, "100", 2), sale(2, "0", 0)},
		Targets: []core.TargetRecord{target(2024, "mar", "150")},
	}

	snap := ComputeSnapshot(ds, march)

	assert.True(t, dec("100").Equal(snap.TotalRevenue))
	assert.Equal(t, int64(2), snap.TotalCustomers)
	assert.True(t, dec("50").Equal(snap.AverageTicket))
	assert.True(t, snap.HasTarget)
	assert.True(t, dec("150").Equal(snap.TargetValue))
	assert.Equal(t, "66.7", snap.ProgressPercent.StringFixed(1))
	require.Len(t, snap.DailySeries, 1)
	assert.Equal(t, day(1), snap.DailySeries[0].Date)
	assert.True(t, dec("100").Equal(snap.TargetSplit.Achieved))
	assert.True(t, dec("50").Equal(snap.TargetSplit.Pending))
}

func TestComputeSnapshotWithoutTarget(t *testing.T) {
	ds := core.Dataset{
		Sales:   []core.SalesRecord{sale(1, "100", 2), sale(2, "0", 0)},
		Targets: []core.TargetRecord{target(2024, "abr", "150"), target(2023, "mar", "150")},
	}

	snap := ComputeSnapshot(ds, march)

	assert.False(t, snap.HasTarget)
	assert.True(t, snap.TargetValue.IsZero())
	assert.True(t, snap.ProgressPercent.IsZero())
	assert.True(t, snap.TargetSplit.Achieved.IsZero())
	assert.True(t, snap.TargetSplit.Pending.IsZero())
}

func TestComputeSnapshotNoCustomers(t *testing.T) {
	ds := core.Dataset{Sales: []core.SalesRecord{sale(1, "100", 0), sale(2, "40", 0)}}

	snap := ComputeSnapshot(ds, march)

	assert.Zero(t, snap.TotalCustomers)
	assert.True(t, snap.AverageTicket.IsZero())
	assert.True(t, dec("140").Equal(snap.TotalRevenue))
}

func TestComputeSnapshotNoMatchingRows(t *testing.T) {
	ds := core.Dataset{Sales: []core.SalesRecord{sale(1, "100", 2)}}

	snap := ComputeSnapshot(ds, core.Selection{Year: 2023, Month: 3})

	assert.True(t, snap.TotalRevenue.IsZero())
	assert.Zero(t, snap.TotalCustomers)
	assert.NotNil(t, snap.DailySeries)
	assert.Empty(t, snap.DailySeries)
}

func TestComputeSnapshotSumsMultipleTargets(t *testing.T) {
	ds := core.Dataset{
		Sales: []core.SalesRecord{sale(1, "100", 1)},
		Targets: []core.TargetRecord{
			target(2024, "mar", "60"),
			target(2024, " MAR ", "40"),
			target(2024, "março", "1000"),
		},
	}

	snap := ComputeSnapshot(ds, march)

	assert.True(t, dec("100").Equal(snap.TargetValue))
	assert.True(t, dec("100").Equal(snap.ProgressPercent))
	assert.True(t, snap.TargetSplit.Pending.IsZero())
}

func TestComputeSnapshotRevenueAboveTarget(t *testing.T) {
	ds := core.Dataset{
		Sales:   []core.SalesRecord{sale(1, "300", 3)},
		Targets: []core.TargetRecord{target(2024, "mar", "200")},
	}

	snap := ComputeSnapshot(ds, march)

	assert.True(t, dec("150").Equal(snap.ProgressPercent))
	assert.True(t, dec("200").Equal(snap.TargetSplit.Achieved))
	assert.True(t, snap.TargetSplit.Pending.IsZero())
}

func TestDailySeriesExcludesNonPositiveAndSorts(t *testing.T) {
	undated := sale(1, "70", 1)
	undated.Date = time.Time{}
	ds := core.Dataset{Sales: []core.SalesRecord{
		sale(9, "10", 1),
		sale(3, "-5", 0),
		sale(2, "20", 1),
		sale(5, "0", 0),
		undated,
		sale(2, "30", 1),
	}}

	snap := ComputeSnapshot(ds, march)

	require.Len(t, snap.DailySeries, 3)
	assert.Equal(t, day(2), snap.DailySeries[0].Date)
	assert.True(t, dec("20").Equal(snap.DailySeries[0].GrossRevenue), "stable for equal dates")
	assert.True(t, dec("30").Equal(snap.DailySeries[1].GrossRevenue))
	assert.Equal(t, day(9), snap.DailySeries[2].Date)
	assert.True(t, dec("125").Equal(snap.TotalRevenue), "excluded rows still count toward the total")
}

func TestSnapshotProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		var sales []core.SalesRecord
		want := decimal.Zero
		n := rng.Intn(20)
		for j := 0; j < n; j++ {
			r := core.SalesRecord{
				Date:          day(1 + rng.Intn(28)),
				Year:          2023 + rng.Intn(2),
				Month:         1 + rng.Intn(3),
				GrossRevenue:  decimal.New(int64(rng.Intn(100000)), -2),
				CustomerCount: int64(rng.Intn(10)),
			}
			if r.Year == 2024 && r.Month == 3 {
				want = want.Add(r.GrossRevenue)
			}
			sales = append(sales, r)
		}
		targets := []core.TargetRecord{target(2024, "mar", decimal.New(int64(rng.Intn(100000)), -2).String())}

		snap := ComputeSnapshot(core.Dataset{Sales: sales, Targets: targets}, march)
		assert.True(t, want.Equal(snap.TotalRevenue))

		rng.Shuffle(len(sales), func(a, b int) { sales[a], sales[b] = sales[b], sales[a] })
		shuffled := ComputeSnapshot(core.Dataset{Sales: sales, Targets: targets}, march)
		assert.True(t, snap.TotalRevenue.Equal(shuffled.TotalRevenue), "order independent")

		if snap.TargetValue.IsPositive() {
			split := snap.TargetSplit
			assert.True(t, split.Achieved.Add(split.Pending).Equal(snap.TargetValue))
			assert.True(t, split.Achieved.LessThanOrEqual(snap.TargetValue))
			assert.False(t, split.Pending.IsNegative())
		} else {
			assert.False(t, snap.HasTarget)
			assert.True(t, snap.ProgressPercent.IsZero())
		}

		for k, p := range snap.DailySeries {
			assert.True(t, p.GrossRevenue.IsPositive())
			if k > 0 {
				assert.False(t, p.Date.Before(snap.DailySeries[k-1].Date))
			}
		}
	}
}

func TestTargetFor(t *testing.T) {
	targets := []core.TargetRecord{
		target(2024, "mar", "10"),
		target(2024, "xyz", "99"),
		{Year: 2024, MonthLabel: "", TargetValue: dec("5"), HasMonth: false},
	}
	assert.True(t, dec("10").Equal(TargetFor(targets, march)))
	assert.True(t, TargetFor(targets, core.Selection{Year: 2024, Month: 0}).IsZero(), "absent month never matches")
}
