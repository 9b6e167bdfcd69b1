// Package excel reads the ledger and targets sheets from a local .xlsx
// workbook with the same layout as the hosted spreadsheet.
package excel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"vendas/internal/core"
	ports "vendas/internal/sheets"
)

const sourceName = "excel"

type Workbook struct {
	path  string
	names ports.SheetNames
}

var _ ports.RawDataSource = (*Workbook)(nil)

func New(path string, names ports.SheetNames) *Workbook {
	return &Workbook{path: path, names: names.WithDefaults()}
}

// ReadTables opens the workbook on every call so edits to the file are
// picked up on the next load.
func (w *Workbook) ReadTables(ctx context.Context) (core.RawDataset, error) {
	if err := ctx.Err(); err != nil {
		return core.RawDataset{}, core.NewLoadError(sourceName, "", fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err))
	}
	start := time.Now()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.RawDataset{}, core.NewLoadError(sourceName, "", fmt.Errorf("%w: workbook %s not found", core.ErrSourceUnavailable, w.path))
		}
		return core.RawDataset{}, core.NewLoadError(sourceName, "", fmt.Errorf("%w: open %s: %v", core.ErrSourceUnavailable, w.path, err))
	}
	defer func() { _ = f.Close() }()

	ledger, err := readSheet(f, w.names.Ledger)
	if err != nil {
		return core.RawDataset{}, err
	}
	targets, err := readSheet(f, w.names.Targets)
	if err != nil {
		return core.RawDataset{}, err
	}

	slog.DebugContext(ctx, "Workbook read",
		"path", w.path,
		"ledger_rows", len(ledger.Rows),
		"target_rows", len(targets.Rows),
		"duration_ms", time.Since(start).Milliseconds())
	return core.RawDataset{Ledger: ledger, Targets: targets}, nil
}

func readSheet(f *excelize.File, sheet string) (core.RawTable, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return core.RawTable{}, core.NewLoadError(sourceName, sheet, fmt.Errorf("%w: not in workbook", core.ErrMissingSheet))
	}
	// raw values keep dates as serial numbers and amounts unformatted
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.RawTable{}, core.NewLoadError(sourceName, sheet, fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err))
	}
	return core.TableFromValues(sheet, rows), nil
}
