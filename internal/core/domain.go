package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// SalesRecord is one normalized row of the daily ledger.
	SalesRecord struct {
		Date          time.Time
		Year          int
		Month         int // 1-12
		GrossRevenue  decimal.Decimal
		CustomerCount int64
	}

	// TargetRecord is one normalized row of the targets table.
	TargetRecord struct {
		Year        int
		MonthLabel  string
		TargetValue decimal.Decimal
		// MonthNumber is only meaningful when HasMonth is true.
		MonthNumber int
		HasMonth    bool
	}

	// Dataset holds both normalized tables for one cache window.
	// It is never mutated after normalization.
	Dataset struct {
		Sales    []SalesRecord
		Targets  []TargetRecord
		LoadedAt time.Time
	}

	// Selection is the year/month filter chosen by the user.
	Selection struct {
		Year  int
		Month int
	}

	DailyPoint struct {
		Date         time.Time
		GrossRevenue decimal.Decimal
	}

	TargetSplit struct {
		Achieved decimal.Decimal
		Pending  decimal.Decimal
	}

	// Snapshot is the full set of metrics for one selection. It is
	// recomputed on every selection change and never persisted.
	Snapshot struct {
		Selection       Selection
		TotalRevenue    decimal.Decimal
		TotalCustomers  int64
		AverageTicket   decimal.Decimal
		TargetValue     decimal.Decimal
		HasTarget       bool
		ProgressPercent decimal.Decimal
		DailySeries     []DailyPoint
		TargetSplit     TargetSplit
	}
)

// Valid reports whether the selection names a real calendar month.
func (s Selection) Valid() bool {
	return s.Year > 0 && s.Month >= 1 && s.Month <= 12
}

// IsEmpty reports whether the dataset carries no ledger rows.
func (d Dataset) IsEmpty() bool {
	return len(d.Sales) == 0
}
