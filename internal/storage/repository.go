package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"vendas/internal/core"
	ports "vendas/internal/sheets"

	_ "modernc.org/sqlite"
)

const sourceName = "sqlite"

const (
	sheetLedger  = "ledger"
	sheetTargets = "targets"
)

// SQLiteRepository is the local mirror of the upstream spreadsheet. The
// mirror worker writes it and the dashboard can read from it instead of
// the remote source.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ ports.RawDataSource = (*SQLiteRepository)(nil)
	_ ports.MirrorWriter  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main connection is opened
	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; readers queue behind it
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceDataset stores raw as a new mirror run and drops older runs in the
// same transaction, so readers see either the old or the new tables.
func (r *SQLiteRepository) ReplaceDataset(ctx context.Context, raw core.RawDataset) (ports.MirrorRun, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.MirrorRun{}, fmt.Errorf("begin mirror transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO mirror_runs (ledger_sheet, targets_sheet, ledger_rows, target_rows, created_at) VALUES (?, ?, ?, ?, ?)`,
		raw.Ledger.Name, raw.Targets.Name, len(raw.Ledger.Rows), len(raw.Targets.Rows), r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return ports.MirrorRun{}, fmt.Errorf("insert mirror run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return ports.MirrorRun{}, fmt.Errorf("mirror run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO raw_cells (run_id, sheet, row_index, cells) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return ports.MirrorRun{}, fmt.Errorf("prepare raw cells insert: %w", err)
	}
	defer stmt.Close()

	for _, part := range []struct {
		sheet string
		table core.RawTable
	}{{sheetLedger, raw.Ledger}, {sheetTargets, raw.Targets}} {
		rows := append([][]string{part.table.Header}, part.table.Rows...)
		for i, row := range rows {
			cells, err := json.Marshal(nonNil(row))
			if err != nil {
				return ports.MirrorRun{}, fmt.Errorf("encode %s row %d: %w", part.sheet, i, err)
			}
			if _, err := stmt.ExecContext(ctx, runID, part.sheet, i, string(cells)); err != nil {
				return ports.MirrorRun{}, fmt.Errorf("insert %s row %d: %w", part.sheet, i, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_cells WHERE run_id <> ?`, runID); err != nil {
		return ports.MirrorRun{}, fmt.Errorf("prune raw cells: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM mirror_runs WHERE id <> ?`, runID); err != nil {
		return ports.MirrorRun{}, fmt.Errorf("prune mirror runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ports.MirrorRun{}, fmt.Errorf("commit mirror run: %w", err)
	}

	run := ports.MirrorRun{ID: runID, LedgerRows: len(raw.Ledger.Rows), TargetRows: len(raw.Targets.Rows)}
	slog.InfoContext(ctx, "Mirror replaced",
		"run_id", run.ID,
		"ledger_rows", run.LedgerRows,
		"target_rows", run.TargetRows)
	return run, nil
}

// ReadTables returns the tables of the latest mirror run.
func (r *SQLiteRepository) ReadTables(ctx context.Context) (core.RawDataset, error) {
	var (
		runID                     int64
		ledgerSheet, targetsSheet string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, ledger_sheet, targets_sheet FROM mirror_runs ORDER BY id DESC LIMIT 1`).
		Scan(&runID, &ledgerSheet, &targetsSheet)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RawDataset{}, core.NewLoadError(sourceName, "", fmt.Errorf("%w: mirror is empty", core.ErrSourceUnavailable))
	}
	if err != nil {
		return core.RawDataset{}, core.NewLoadError(sourceName, "", fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err))
	}

	ledger, err := r.readTable(ctx, runID, sheetLedger, ledgerSheet)
	if err != nil {
		return core.RawDataset{}, err
	}
	targets, err := r.readTable(ctx, runID, sheetTargets, targetsSheet)
	if err != nil {
		return core.RawDataset{}, err
	}
	return core.RawDataset{Ledger: ledger, Targets: targets}, nil
}

func (r *SQLiteRepository) readTable(ctx context.Context, runID int64, sheet, name string) (core.RawTable, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cells FROM raw_cells WHERE run_id = ? AND sheet = ? ORDER BY row_index`, runID, sheet)
	if err != nil {
		return core.RawTable{}, core.NewLoadError(sourceName, name, fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err))
	}
	defer rows.Close()

	var values [][]string
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return core.RawTable{}, core.NewLoadError(sourceName, name, fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err))
		}
		var row []string
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return core.RawTable{}, core.NewLoadError(sourceName, name, fmt.Errorf("%w: corrupt row: %v", core.ErrSourceUnavailable, err))
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return core.RawTable{}, core.NewLoadError(sourceName, name, fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err))
	}
	if len(values) == 0 {
		return core.RawTable{}, core.NewLoadError(sourceName, name, fmt.Errorf("%w: no rows mirrored", core.ErrMissingSheet))
	}
	return core.RawTable{Name: name, Header: values[0], Rows: values[1:]}, nil
}

func nonNil(row []string) []string {
	if row == nil {
		return []string{}
	}
	return row
}
