package http

import (
	"math"
	"strconv"
	"strings"

	"vendas/internal/core"
)

// Chart geometry, in SVG user units.
const (
	chartWidth  = 640.0
	chartHeight = 260.0
	chartLeft   = 76.0
	chartRight  = 16.0
	chartTop    = 16.0
	chartBottom = 32.0
	maxXTicks   = 8
	yTickCount  = 4
	donutSize   = 220.0
	donutRadius = 80.0
	donutStroke = 28.0
)

type ChartPoint struct {
	X, Y  string
	Title string
}

type ChartTick struct {
	Pos   string
	Label string
}

// AreaChart is the pre-computed SVG geometry of the daily revenue chart.
type AreaChart struct {
	Width, Height       float64
	PlotLeft, PlotRight string
	Baseline            string
	AreaPath            string
	LinePath            string
	Points              []ChartPoint
	YTicks              []ChartTick
	XTicks              []ChartTick
	Empty               bool
}

// NewAreaChart lays out series (already sorted by date) on a time x-axis.
func NewAreaChart(series []core.DailyPoint) AreaChart {
	c := AreaChart{
		Width:     chartWidth,
		Height:    chartHeight,
		PlotLeft:  coord(chartLeft),
		PlotRight: coord(chartWidth - chartRight),
		Baseline:  coord(chartHeight - chartBottom),
	}
	if len(series) == 0 {
		c.Empty = true
		return c
	}

	plotW := chartWidth - chartLeft - chartRight
	plotH := chartHeight - chartTop - chartBottom
	base := chartHeight - chartBottom

	maxV := 0.0
	for _, p := range series {
		maxV = math.Max(maxV, p.GrossRevenue.InexactFloat64())
	}
	top := niceCeil(maxV)

	first, last := series[0].Date, series[len(series)-1].Date
	span := last.Sub(first).Seconds()

	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		if span > 0 {
			xs[i] = chartLeft + plotW*p.Date.Sub(first).Seconds()/span
		} else {
			xs[i] = chartLeft + plotW/2
		}
		ys[i] = chartTop + plotH*(1-p.GrossRevenue.InexactFloat64()/top)
		c.Points = append(c.Points, ChartPoint{
			X:     coord(xs[i]),
			Y:     coord(ys[i]),
			Title: p.Date.Format("02/01/2006") + " - " + core.FormatBRL(p.GrossRevenue),
		})
	}

	var line, area strings.Builder
	area.WriteString("M" + coord(xs[0]) + "," + coord(base))
	for i := range xs {
		seg := coord(xs[i]) + "," + coord(ys[i])
		if i == 0 {
			line.WriteString("M" + seg)
		} else {
			line.WriteString(" L" + seg)
		}
		area.WriteString(" L" + seg)
	}
	area.WriteString(" L" + coord(xs[len(xs)-1]) + "," + coord(base) + " Z")
	c.LinePath = line.String()
	c.AreaPath = area.String()

	for i := 0; i <= yTickCount; i++ {
		v := top * float64(i) / yTickCount
		c.YTicks = append(c.YTicks, ChartTick{
			Pos:   coord(chartTop + plotH*(1-v/top)),
			Label: "R$ " + core.FormatCount(int64(math.Round(v))),
		})
	}

	step := (len(series) + maxXTicks - 1) / maxXTicks
	for i := 0; i < len(series); i += step {
		c.XTicks = append(c.XTicks, ChartTick{Pos: coord(xs[i]), Label: series[i].Date.Format("02/01")})
	}
	return c
}

// DonutChart is the SVG geometry of the target achievement ring.
type DonutChart struct {
	Size          float64
	Center        float64
	Radius        float64
	Stroke        float64
	Circumference string
	AchievedDash  string
	Label         string
	AchievedLabel string
	PendingLabel  string
	HasTarget     bool
}

// NewDonutChart draws achieved against pending. Without a target the chart
// is replaced by a warning in the page.
func NewDonutChart(s core.Snapshot) DonutChart {
	circ := 2 * math.Pi * donutRadius
	d := DonutChart{
		Size:          donutSize,
		Center:        donutSize / 2,
		Radius:        donutRadius,
		Stroke:        donutStroke,
		Circumference: coord(circ),
		HasTarget:     s.HasTarget,
	}
	if !s.HasTarget {
		return d
	}

	total := s.TargetSplit.Achieved.Add(s.TargetSplit.Pending)
	frac := 0.0
	if total.IsPositive() {
		frac = s.TargetSplit.Achieved.Div(total).InexactFloat64()
	}
	frac = math.Min(math.Max(frac, 0), 1)

	dash := circ * frac
	d.AchievedDash = coord(dash) + " " + coord(circ-dash)
	d.Label = core.FormatPercent(s.ProgressPercent)
	d.AchievedLabel = core.FormatBRL(s.TargetSplit.Achieved)
	d.PendingLabel = core.FormatBRL(s.TargetSplit.Pending)
	return d
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	f := v / exp
	switch {
	case f <= 1:
		f = 1
	case f <= 2:
		f = 2
	case f <= 5:
		f = 5
	default:
		f = 10
	}
	return f * exp
}

func coord(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}
