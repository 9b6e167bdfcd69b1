package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"vendas/internal/core"
)

// Columns names the headers the normalizer requires. Headers are matched
// exactly after trimming.
type Columns struct {
	LedgerDate      string
	LedgerRevenue   string
	LedgerCustomers string
	LedgerYear      string
	LedgerMonth     string

	TargetYear  string
	TargetMonth string
	TargetValue string
}

// DefaultColumns returns the headers of the production spreadsheet.
func DefaultColumns() Columns {
	return Columns{
		LedgerDate:      "Data",
		LedgerRevenue:   "Faturamento Bruto",
		LedgerCustomers: "N° de Clientes",
		LedgerYear:      "Ano",
		LedgerMonth:     "Mês",
		TargetYear:      "Ano",
		TargetMonth:     "Mês",
		TargetValue:     "Valor da Meta",
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"02/01/06",
}

// Normalizer turns raw sheet tables into typed, immutable records.
type Normalizer struct {
	cols Columns
}

func NewNormalizer(cols Columns) *Normalizer {
	return &Normalizer{cols: cols}
}

// NormalizeStats counts the cells that were silently defaulted.
type NormalizeStats struct {
	LedgerRows       int
	TargetRows       int
	CoercedCells     int
	UnmappedMonths   int
	UndatedLedgerRow int
}

// Normalize validates headers and converts both tables. A malformed date
// fails the whole load; every other bad cell becomes zero.
func (n *Normalizer) Normalize(ctx context.Context, raw core.RawDataset) (core.Dataset, error) {
	ds, stats, err := n.normalize(raw)
	if err != nil {
		return core.Dataset{}, err
	}
	slog.DebugContext(ctx, "Dataset normalized",
		"ledger_rows", stats.LedgerRows,
		"target_rows", stats.TargetRows,
		"coerced_cells", stats.CoercedCells,
		"unmapped_months", stats.UnmappedMonths,
		"undated_rows", stats.UndatedLedgerRow)
	return ds, nil
}

func (n *Normalizer) normalize(raw core.RawDataset) (core.Dataset, NormalizeStats, error) {
	var stats NormalizeStats

	sales, err := n.normalizeLedger(raw.Ledger, &stats)
	if err != nil {
		return core.Dataset{}, stats, err
	}
	targets, err := n.normalizeTargets(raw.Targets, &stats)
	if err != nil {
		return core.Dataset{}, stats, err
	}
	return core.Dataset{Sales: sales, Targets: targets}, stats, nil
}

func (n *Normalizer) normalizeLedger(t core.RawTable, stats *NormalizeStats) ([]core.SalesRecord, error) {
	idx, err := headerIndex(t, n.cols.LedgerDate, n.cols.LedgerRevenue, n.cols.LedgerCustomers, n.cols.LedgerYear, n.cols.LedgerMonth)
	if err != nil {
		return nil, err
	}
	colDate, colRev, colCust, colYear, colMonth := idx[0], idx[1], idx[2], idx[3], idx[4]

	out := make([]core.SalesRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		if core.BlankRow(row) {
			continue
		}
		rec := core.SalesRecord{}

		if cell := core.Cell(row, colDate); cell != "" {
			d, ok := ParseDate(cell)
			if !ok {
				// header is sheet row 1
				return nil, &core.LoadError{Sheet: t.Name, Err: fmt.Errorf("%w: row %d value %q", core.ErrInvalidDate, i+2, cell)}
			}
			rec.Date = d
		} else {
			stats.UndatedLedgerRow++
		}

		var ok bool
		if rec.GrossRevenue, ok = coerceDecimal(core.Cell(row, colRev)); !ok {
			stats.CoercedCells++
		}
		customers, ok := coerceDecimal(core.Cell(row, colCust))
		if !ok {
			stats.CoercedCells++
		}
		rec.CustomerCount = customers.IntPart()

		rec.Year, ok = coerceInt(core.Cell(row, colYear))
		if !ok || rec.Year <= 0 {
			rec.Year = dateYear(rec.Date)
		}
		rec.Month, ok = coerceInt(core.Cell(row, colMonth))
		if !ok || rec.Month < 1 || rec.Month > 12 {
			rec.Month = dateMonth(rec.Date)
		}

		out = append(out, rec)
	}
	stats.LedgerRows = len(out)
	return out, nil
}

func (n *Normalizer) normalizeTargets(t core.RawTable, stats *NormalizeStats) ([]core.TargetRecord, error) {
	idx, err := headerIndex(t, n.cols.TargetYear, n.cols.TargetMonth, n.cols.TargetValue)
	if err != nil {
		return nil, err
	}
	colYear, colMonth, colValue := idx[0], idx[1], idx[2]

	out := make([]core.TargetRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		if core.BlankRow(row) {
			continue
		}
		rec := core.TargetRecord{MonthLabel: core.Cell(row, colMonth)}
		rec.Year, _ = coerceInt(core.Cell(row, colYear))

		var ok bool
		if rec.TargetValue, ok = coerceDecimal(core.Cell(row, colValue)); !ok {
			stats.CoercedCells++
		}
		rec.MonthNumber, rec.HasMonth = core.MonthFromLabel(rec.MonthLabel)
		if !rec.HasMonth {
			stats.UnmappedMonths++
		}
		out = append(out, rec)
	}
	stats.TargetRows = len(out)
	return out, nil
}

// headerIndex trims every header and resolves the wanted columns in order.
func headerIndex(t core.RawTable, want ...string) ([]int, error) {
	if len(t.Header) == 0 {
		return nil, &core.LoadError{Sheet: t.Name, Err: fmt.Errorf("%w: sheet has no header row", core.ErrMissingColumn)}
	}
	pos := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	out := make([]int, len(want))
	var missing []string
	for i, w := range want {
		p, ok := pos[strings.TrimSpace(w)]
		if !ok {
			missing = append(missing, w)
			continue
		}
		out[i] = p
	}
	if len(missing) > 0 {
		return nil, &core.LoadError{Sheet: t.Name, Err: fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ", "))}
	}
	return out, nil
}

// ParseDate parses a ledger date cell into a calendar date (UTC midnight).
// Spreadsheet serial numbers are accepted as well as the text layouts in
// dateLayouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), true
		}
	}
	// 2958465 is 9999-12-31, the last date a spreadsheet can hold
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 1 && f <= 2958465 {
		t, err := excelize.ExcelDateToTime(f, false)
		if err == nil {
			return calendarDate(t), true
		}
	}
	return time.Time{}, false
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// coerceDecimal returns zero and false for anything that is not a number.
func coerceDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func coerceInt(s string) (int, bool) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	d, ok := coerceDecimal(s)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

func dateYear(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	return t.Year()
}

func dateMonth(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	return int(t.Month())
}
