package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"vendas/internal/core"
	ports "vendas/internal/sheets"
)

const sourceName = "memory"

// Store keeps the raw tables in process. It serves as the development
// backend and as a test double for both ports.
type Store struct {
	mu   sync.Mutex
	raw  core.RawDataset
	runs int64
	err  error
}

var (
	_ ports.RawDataSource = (*Store)(nil)
	_ ports.MirrorWriter  = (*Store)(nil)
)

func New(raw core.RawDataset) *Store {
	return &Store{raw: cloneDataset(raw)}
}

// NewFromFiles seeds the store from ledger.csv and targets.csv in base.
// When either file is missing the demo dataset is used instead.
func NewFromFiles(base string, names ports.SheetNames) (*Store, error) {
	names = names.WithDefaults()
	ledger, err := readCSV(filepath.Join(base, "ledger.csv"))
	if errors.Is(err, os.ErrNotExist) {
		return New(Demo(names)), nil
	}
	if err != nil {
		return nil, err
	}
	targets, err := readCSV(filepath.Join(base, "targets.csv"))
	if errors.Is(err, os.ErrNotExist) {
		return New(Demo(names)), nil
	}
	if err != nil {
		return nil, err
	}
	return New(core.RawDataset{
		Ledger:  core.TableFromValues(names.Ledger, ledger),
		Targets: core.TableFromValues(names.Targets, targets),
	}), nil
}

// ReadTables returns a copy of the stored tables.
func (s *Store) ReadTables(ctx context.Context) (core.RawDataset, error) {
	if err := ctx.Err(); err != nil {
		return core.RawDataset{}, core.NewLoadError(sourceName, "", fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return core.RawDataset{}, core.NewLoadError(sourceName, "", s.err)
	}
	return cloneDataset(s.raw), nil
}

// ReplaceDataset swaps the stored tables.
func (s *Store) ReplaceDataset(_ context.Context, raw core.RawDataset) (ports.MirrorRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = cloneDataset(raw)
	s.runs++
	return ports.MirrorRun{ID: s.runs, LedgerRows: len(raw.Ledger.Rows), TargetRows: len(raw.Targets.Rows)}, nil
}

// FailWith makes subsequent reads fail with err; nil restores normal reads.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Demo returns a small dataset covering two months of 2024 with a target
// for March only.
func Demo(names ports.SheetNames) core.RawDataset {
	names = names.WithDefaults()
	return core.RawDataset{
		Ledger: core.RawTable{
			Name:   names.Ledger,
			Header: []string{"Data", "Faturamento Bruto", "N° de Clientes", "Ano", "Mês"},
			Rows: [][]string{
				{"2024-02-27", "820.40", "9", "2024", "2"},
				{"2024-02-28", "1140.00", "12", "2024", "2"},
				{"2024-03-01", "1500.00", "15", "2024", "3"},
				{"2024-03-02", "980.50", "11", "2024", "3"},
				{"2024-03-04", "0", "0", "2024", "3"},
				{"2024-03-05", "2210.75", "21", "2024", "3"},
			},
		},
		Targets: core.RawTable{
			Name:   names.Targets,
			Header: []string{"Ano", "Mês", "Valor da Meta"},
			Rows: [][]string{
				{"2024", "mar", "7500"},
			},
		},
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func cloneDataset(in core.RawDataset) core.RawDataset {
	return core.RawDataset{Ledger: cloneTable(in.Ledger), Targets: cloneTable(in.Targets)}
}

func cloneTable(in core.RawTable) core.RawTable {
	out := core.RawTable{Name: in.Name, Header: append([]string(nil), in.Header...)}
	if in.Rows != nil {
		out.Rows = make([][]string, len(in.Rows))
		for i, r := range in.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}
