package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendas/internal/core"
)

func periodDataset() core.Dataset {
	return core.Dataset{Sales: []core.SalesRecord{
		{Year: 2023, Month: 11},
		{Year: 2024, Month: 3},
		{Year: 2023, Month: 2},
		{Year: 2024, Month: 1},
		{Year: 2024, Month: 3},
		{Year: 0, Month: 0},
		{Year: 2022, Month: 0},
	}}
}

func TestYearsDescending(t *testing.T) {
	assert.Equal(t, []int{2024, 2023}, Years(periodDataset()))
	assert.Empty(t, Years(core.Dataset{}))
}

func TestMonthsAscending(t *testing.T) {
	ds := periodDataset()
	assert.Equal(t, []int{1, 3}, Months(ds, 2024))
	assert.Equal(t, []int{2, 11}, Months(ds, 2023))
	assert.Empty(t, Months(ds, 2022))
}

func TestResolveSelection(t *testing.T) {
	ds := periodDataset()
	tests := []struct {
		name      string
		requested core.Selection
		want      core.Selection
	}{
		{"default is latest year and month", core.Selection{}, core.Selection{Year: 2024, Month: 3}},
		{"requested pair kept", core.Selection{Year: 2023, Month: 2}, core.Selection{Year: 2023, Month: 2}},
		{"unknown month clamps within year", core.Selection{Year: 2023, Month: 5}, core.Selection{Year: 2023, Month: 11}},
		{"unknown year falls back", core.Selection{Year: 1999, Month: 1}, core.Selection{Year: 2024, Month: 1}},
		{"year without valid months ignored", core.Selection{Year: 2022, Month: 1}, core.Selection{Year: 2024, Month: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSelection(ds, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSelectionEmpty(t *testing.T) {
	_, err := ResolveSelection(core.Dataset{}, core.Selection{Year: 2024, Month: 3})
	assert.True(t, errors.Is(err, core.ErrNoData))
}
