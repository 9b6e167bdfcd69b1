package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"vendas/internal/core"
	"vendas/internal/services"
)

const pageTitle = "Painel de Vendas Executivo"

// Option is one entry of a year or month selector.
type Option struct {
	Value    int
	Label    string
	Selected bool
}

// KPICard is one of the four headline figures.
type KPICard struct {
	Label      string
	Value      string
	Delta      string
	DeltaClass string
}

// PageData feeds dashboard.html. When Error is set nothing else is shown.
type PageData struct {
	Title     string
	UpdatedAt string
	Selection core.Selection
	MonthName string
	Years     []Option
	Months    []Option
	Cards     []KPICard
	Area      AreaChart
	Donut     DonutChart
	Error     string
}

// buildPage formats a dashboard view for the page template. Timestamps are
// shown in loc.
func buildPage(view services.DashboardView, loc *time.Location) PageData {
	sel := view.Selection
	snap := view.Snapshot

	page := PageData{
		Title:     pageTitle,
		UpdatedAt: view.LoadedAt.In(loc).Format("02/01/2006 15:04:05"),
		Selection: sel,
		MonthName: core.MonthName(sel.Month),
		Area:      NewAreaChart(snap.DailySeries),
		Donut:     NewDonutChart(snap),
		Cards:     KPICards(snap),
	}
	for _, y := range view.Years {
		page.Years = append(page.Years, Option{Value: y, Label: strconv.Itoa(y), Selected: y == sel.Year})
	}
	for _, m := range view.Months {
		page.Months = append(page.Months, Option{Value: m, Label: core.MonthName(m), Selected: m == sel.Month})
	}
	return page
}

// KPICards renders the four headline indicators in display order.
func KPICards(snap core.Snapshot) []KPICard {
	delta := snap.ProgressPercent.Sub(core.Hundred())
	deltaClass := "kpi__delta--down"
	if !delta.IsNegative() {
		deltaClass = "kpi__delta--up"
	}
	return []KPICard{
		{Label: "Faturamento Total", Value: core.FormatBRL(snap.TotalRevenue)},
		{Label: "% Meta Atingida", Value: core.FormatPercent(snap.ProgressPercent), Delta: core.FormatSignedPercent(delta), DeltaClass: deltaClass},
		{Label: "Ticket Médio", Value: core.FormatBRL(snap.AverageTicket)},
		{Label: "Nº de Clientes", Value: core.FormatCount(snap.TotalCustomers)},
	}
}

// errorPage is the single-message page shown when the dataset cannot be
// loaded.
func errorPage(err error) PageData {
	return PageData{Title: pageTitle, Error: "Erro ao processar dados: " + err.Error()}
}

// errorStatus maps a load error onto an HTTP status.
func errorStatus(err error) int {
	if errors.Is(err, core.ErrSourceUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// SnapshotResponse is the JSON form of a dashboard view.
type SnapshotResponse struct {
	Year            int               `json:"year"`
	Month           int               `json:"month"`
	MonthName       string            `json:"month_name"`
	Years           []int             `json:"years"`
	Months          []int             `json:"months"`
	LoadedAt        time.Time         `json:"loaded_at"`
	TotalRevenue    decimal.Decimal   `json:"total_revenue"`
	TotalCustomers  int64             `json:"total_customers"`
	AverageTicket   decimal.Decimal   `json:"average_ticket"`
	TargetValue     decimal.Decimal   `json:"target_value"`
	HasTarget       bool              `json:"has_target"`
	ProgressPercent decimal.Decimal   `json:"progress_percent"`
	Achieved        decimal.Decimal   `json:"achieved"`
	Pending         decimal.Decimal   `json:"pending"`
	DailySeries     []DailyPointJSON  `json:"daily_series"`
	Formatted       map[string]string `json:"formatted"`
}

type DailyPointJSON struct {
	Date         string          `json:"date"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
}

// PeriodsResponse lists the selectable years and the months of one year.
type PeriodsResponse struct {
	Years  []int `json:"years"`
	Year   int   `json:"year"`
	Months []int `json:"months"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Source string `json:"source,omitempty"`
	Sheet  string `json:"sheet,omitempty"`
}

// NewSnapshotResponse converts a view for the JSON API, with LoadedAt in loc.
func NewSnapshotResponse(view services.DashboardView, loc *time.Location) SnapshotResponse {
	snap := view.Snapshot
	resp := SnapshotResponse{
		Year:            view.Selection.Year,
		Month:           view.Selection.Month,
		MonthName:       core.MonthName(view.Selection.Month),
		Years:           view.Years,
		Months:          view.Months,
		LoadedAt:        view.LoadedAt.In(loc),
		TotalRevenue:    snap.TotalRevenue,
		TotalCustomers:  snap.TotalCustomers,
		AverageTicket:   snap.AverageTicket,
		TargetValue:     snap.TargetValue,
		HasTarget:       snap.HasTarget,
		ProgressPercent: snap.ProgressPercent,
		Achieved:        snap.TargetSplit.Achieved,
		Pending:         snap.TargetSplit.Pending,
		DailySeries:     make([]DailyPointJSON, 0, len(snap.DailySeries)),
		Formatted:       make(map[string]string, 4),
	}
	for _, p := range snap.DailySeries {
		resp.DailySeries = append(resp.DailySeries, DailyPointJSON{Date: p.Date.Format("2006-01-02"), GrossRevenue: p.GrossRevenue})
	}
	for _, card := range KPICards(snap) {
		resp.Formatted[card.Label] = card.Value
	}
	return resp
}

func buildErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: "Erro ao processar dados: " + err.Error()}
	var le *core.LoadError
	if errors.As(err, &le) {
		resp.Source = le.Source
		resp.Sheet = le.Sheet
	}
	return resp
}
