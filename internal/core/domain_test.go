package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthFromLabel(t *testing.T) {
	labels := []string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}
	for i, l := range labels {
		m, ok := MonthFromLabel(l)
		require.True(t, ok, l)
		assert.Equal(t, i+1, m, l)
	}

	for _, l := range []string{" Mar ", "MAR", "\tdez\n", "Set"} {
		_, ok := MonthFromLabel(l)
		assert.True(t, ok, "%q should map", l)
	}

	for _, l := range []string{"", "march", "feb", "0", "3", "marco", "ma r"} {
		m, ok := MonthFromLabel(l)
		assert.False(t, ok, "%q must not map", l)
		assert.Zero(t, m)
	}
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "Janeiro", MonthName(1))
	assert.Equal(t, "Março", MonthName(3))
	assert.Equal(t, "Dezembro", MonthName(12))
	assert.Empty(t, MonthName(0))
	assert.Empty(t, MonthName(13))
}

func TestSelectionValid(t *testing.T) {
	assert.True(t, Selection{Year: 2024, Month: 3}.Valid())
	assert.False(t, Selection{Year: 2024, Month: 0}.Valid())
	assert.False(t, Selection{Year: 2024, Month: 13}.Valid())
	assert.False(t, Selection{Month: 3}.Valid())
}

func TestLoadError(t *testing.T) {
	err := NewLoadError("sheets", "Metas", ErrMissingColumn)
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Equal(t, `load sheets (sheet "Metas"): missing required column`, err.Error())

	// wrapping twice keeps the innermost LoadError
	again := NewLoadError("excel", "", fmt.Errorf("read: %w", err))
	var le *LoadError
	require.True(t, errors.As(again, &le))
	assert.Equal(t, "sheets", le.Source)

	assert.NoError(t, NewLoadError("sheets", "", nil))
	assert.False(t, IsLoadError(errors.New("plain")))
}

func TestTableFromValues(t *testing.T) {
	tbl := TableFromValues("Metas", [][]string{
		{"", " "},
		{" Ano", "Mês ", "Valor da Meta"},
		{"2024", "mar", "150"},
	})
	assert.Equal(t, "Metas", tbl.Name)
	assert.Equal(t, []string{" Ano", "Mês ", "Valor da Meta"}, tbl.Header)
	assert.Len(t, tbl.Rows, 1)

	empty := TableFromValues("x", nil)
	assert.Nil(t, empty.Header)
	assert.Empty(t, empty.Rows)
}

func TestCell(t *testing.T) {
	row := []string{" a ", "b"}
	assert.Equal(t, "a", Cell(row, 0))
	assert.Equal(t, "", Cell(row, 2))
	assert.Equal(t, "", Cell(row, -1))
}
