package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendas/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "mirror.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, path
}

func sampleRaw() core.RawDataset {
	return core.RawDataset{
		Ledger: core.RawTable{
			Name:   "Lançamento Diário",
			Header: []string{"Data", "Faturamento Bruto", "N° de Clientes", "Ano", "Mês"},
			Rows: [][]string{
				{"01/03/2024", "100", "2", "2024", "3"},
				{"02/03/2024", "abc"},
			},
		},
		Targets: core.RawTable{
			Name:   "Metas",
			Header: []string{"Ano", "Mês", "Valor da Meta"},
			Rows:   [][]string{{"2024", "mar", "1000"}},
		},
	}
}

func TestReadTablesEmptyMirror(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.ReadTables(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsLoadError(err))
	assert.True(t, errors.Is(err, core.ErrSourceUnavailable))
}

func TestReplaceAndReadRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	run, err := repo.ReplaceDataset(ctx, sampleRaw())
	require.NoError(t, err)
	assert.Equal(t, 2, run.LedgerRows)
	assert.Equal(t, 1, run.TargetRows)
	assert.NotZero(t, run.ID)

	raw, err := repo.ReadTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRaw(), raw)
}

func TestReplaceDropsPreviousRun(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.ReplaceDataset(ctx, sampleRaw())
	require.NoError(t, err)

	next := sampleRaw()
	next.Ledger.Rows = next.Ledger.Rows[:1]
	second, err := repo.ReplaceDataset(ctx, next)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	raw, err := repo.ReadTables(ctx)
	require.NoError(t, err)
	assert.Len(t, raw.Ledger.Rows, 1)

	var runs, cells int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM mirror_runs`).Scan(&runs))
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM raw_cells`).Scan(&cells))
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1+1+1+1, cells, "ledger header + row, targets header + row")
}

func TestMirrorSurvivesReopen(t *testing.T) {
	repo, path := newTestRepo(t)
	_, err := repo.ReplaceDataset(context.Background(), sampleRaw())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	raw, err := reopened.ReadTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Metas", raw.Targets.Name)
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	require.NoError(t, err)
	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)
	assert.Equal(t, v1, v2)
}
