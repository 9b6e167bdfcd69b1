package sheets

import (
	"context"

	"vendas/internal/core"
)

// Ports for outbound adapters.
type (
	// RawDataSource supplies the ledger and targets tables. Any failure is
	// reported as a *core.LoadError.
	RawDataSource interface {
		ReadTables(ctx context.Context) (core.RawDataset, error)
	}

	// MirrorWriter replaces the locally mirrored copy of the raw tables.
	MirrorWriter interface {
		ReplaceDataset(ctx context.Context, raw core.RawDataset) (MirrorRun, error)
	}
)

// MirrorRun describes one completed mirror write.
type MirrorRun struct {
	ID         int64
	LedgerRows int
	TargetRows int
}

// SheetNames identifies the two sheets every source reads.
type SheetNames struct {
	Ledger  string
	Targets string
}

// DefaultSheetNames returns the sheet names of the production spreadsheet.
func DefaultSheetNames() SheetNames {
	return SheetNames{Ledger: "Lançamento Diário", Targets: "Metas"}
}

// WithDefaults fills empty names from DefaultSheetNames.
func (n SheetNames) WithDefaults() SheetNames {
	d := DefaultSheetNames()
	if n.Ledger == "" {
		n.Ledger = d.Ledger
	}
	if n.Targets == "" {
		n.Targets = d.Targets
	}
	return n
}
