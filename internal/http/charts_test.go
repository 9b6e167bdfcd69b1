package http

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendas/internal/core"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func TestNiceCeil(t *testing.T) {
	tests := map[float64]float64{
		0:    1,
		-5:   1,
		1:    1,
		1.5:  2,
		100:  100,
		1234: 2000,
		4100: 5000,
		7600: 10000,
	}
	for in, want := range tests {
		assert.Equal(t, want, niceCeil(in), "niceCeil(%v)", in)
	}
}

func TestAreaChartEmpty(t *testing.T) {
	c := NewAreaChart(nil)
	assert.True(t, c.Empty)
	assert.Empty(t, c.Points)
}

func TestAreaChartLayout(t *testing.T) {
	series := []core.DailyPoint{
		{Date: day(1), GrossRevenue: decimal.NewFromInt(1500)},
		{Date: day(2), GrossRevenue: decimal.NewFromInt(1000)},
		{Date: day(5), GrossRevenue: decimal.NewFromInt(2000)},
	}
	c := NewAreaChart(series)
	require.Len(t, c.Points, 3)

	assert.Equal(t, "76", c.Points[0].X, "first day sits on the left edge")
	assert.Equal(t, "624", c.Points[2].X, "last day sits on the right edge")
	assert.Equal(t, "16", c.Points[2].Y, "the maximum touches the top of the plot")
	assert.Equal(t, "01/03/2024 - R$ 1.500,00", c.Points[0].Title)

	assert.True(t, strings.HasPrefix(c.AreaPath, "M76,228 L76,"))
	assert.True(t, strings.HasSuffix(c.AreaPath, "L624,228 Z"))
	assert.True(t, strings.HasPrefix(c.LinePath, "M76,"))

	require.Len(t, c.YTicks, 5)
	assert.Equal(t, "R$ 0", c.YTicks[0].Label)
	assert.Equal(t, "R$ 2.000", c.YTicks[4].Label)
	assert.Len(t, c.XTicks, 3)
	assert.Equal(t, "05/03", c.XTicks[2].Label)
}

func TestAreaChartSinglePointIsCentred(t *testing.T) {
	c := NewAreaChart([]core.DailyPoint{{Date: day(1), GrossRevenue: decimal.NewFromInt(10)}})
	require.Len(t, c.Points, 1)
	assert.Equal(t, "350", c.Points[0].X)
}

func TestAreaChartThinsXTicks(t *testing.T) {
	var series []core.DailyPoint
	for d := 1; d <= 31; d++ {
		series = append(series, core.DailyPoint{Date: day(d), GrossRevenue: decimal.NewFromInt(int64(d))})
	}
	c := NewAreaChart(series)
	assert.LessOrEqual(t, len(c.XTicks), maxXTicks)
}

func TestDonutChart(t *testing.T) {
	snap := core.Snapshot{
		HasTarget:       true,
		TargetValue:     decimal.NewFromInt(300),
		ProgressPercent: decimal.RequireFromString("66.6666"),
		TargetSplit: core.TargetSplit{
			Achieved: decimal.NewFromInt(200),
			Pending:  decimal.NewFromInt(100),
		},
	}
	d := NewDonutChart(snap)
	assert.True(t, d.HasTarget)
	assert.Equal(t, "66,7%", d.Label)
	assert.Equal(t, "R$ 200,00", d.AchievedLabel)
	assert.Equal(t, "R$ 100,00", d.PendingLabel)
	assert.Equal(t, "335.1 167.55", d.AchievedDash)
}

func TestDonutChartAboveTargetIsFull(t *testing.T) {
	snap := core.Snapshot{
		HasTarget:       true,
		ProgressPercent: decimal.NewFromInt(150),
		TargetSplit:     core.TargetSplit{Achieved: decimal.NewFromInt(100), Pending: decimal.Zero},
	}
	d := NewDonutChart(snap)
	assert.Equal(t, d.Circumference+" 0", d.AchievedDash)
	assert.Equal(t, "150,0%", d.Label)
}

func TestDonutChartWithoutTarget(t *testing.T) {
	d := NewDonutChart(core.Snapshot{})
	assert.False(t, d.HasTarget)
	assert.Empty(t, d.AchievedDash)
}
