package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"finreport/internal/amqp"
	"finreport/internal/core"
	"finreport/internal/ledger"
	"finreport/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	stored   core.Ledger
	runs     []storage.ImportRun
	failed   []storage.ImportRun
	importFn func(core.Ledger) error
}

func (s *fakeStore) Load(context.Context) (core.Ledger, error) { return s.stored, nil }

func (s *fakeStore) ImportLedger(_ context.Context, run storage.ImportRun, l core.Ledger) (int, error) {
	if s.importFn != nil {
		if err := s.importFn(l); err != nil {
			return 0, err
		}
	}
	s.stored = l
	s.runs = append(s.runs, run)
	return len(l), nil
}

func (s *fakeStore) RecordFailedImport(_ context.Context, run storage.ImportRun, _ error) error {
	s.failed = append(s.failed, run)
	return nil
}

type fakeSource struct {
	l   core.Ledger
	err error
}

func (f fakeSource) Load(context.Context) (core.Ledger, error) { return f.l, f.err }

func writeCSV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := "Дата операции;Сумма операции;Категория\n" +
		"29.12.2021 22:32:24;-1411,4;Ж/д билеты\n" +
		"25.12.2021 22:21:49;-218,07;Каршеринг\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestImportReadsFileIntoStore(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "operations.csv")
	store := &fakeStore{}
	w := NewImportWorker(store, "", nil)

	n, err := w.Import(context.Background(), "run-1", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.runs, 1)
	assert.Equal(t, "run-1", store.runs[0].ID)
	assert.Equal(t, path, store.runs[0].SourcePath)
	assert.Equal(t, "Каршеринг", store.stored[1].Category)
}

func TestImportRelativeToDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "operations.csv")
	store := &fakeStore{}
	w := NewImportWorker(store, dir, nil)

	n, err := w.Import(context.Background(), "", "operations.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotEmpty(t, store.runs[0].ID)
}

func TestImportRejectsPathOutsideDirectory(t *testing.T) {
	store := &fakeStore{}
	w := NewImportWorker(store, t.TempDir(), nil)

	for _, p := range []string{"../secrets.csv", "/etc/passwd", "  "} {
		_, err := w.Import(context.Background(), "run", p)
		assert.ErrorIs(t, err, ErrRejected, p)
	}
	assert.Len(t, store.failed, 3)
	assert.Empty(t, store.runs)
}

func TestImportRejectsUnreadableFile(t *testing.T) {
	store := &fakeStore{}
	w := NewImportWorker(store, "", nil)
	w.open = func(string) ledger.Source { return fakeSource{err: ledger.ErrMissingColumns} }

	_, err := w.Import(context.Background(), "run", "/data/operations.xlsx")
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, ledger.ErrMissingColumns)
	require.Len(t, store.failed, 1)
	assert.False(t, store.failed[0].FinishedAt.IsZero())
}

func TestHandleLedgerImportAcksRejected(t *testing.T) {
	store := &fakeStore{}
	w := NewImportWorker(store, "", nil)
	w.open = func(string) ledger.Source { return fakeSource{err: errors.New("no such file")} }

	err := w.HandleLedgerImport(context.Background(), &amqp.LedgerImportMessage{ID: "a", Path: "/missing.csv"})
	assert.NoError(t, err)
	assert.Len(t, store.failed, 1)
}

func TestHandleLedgerImportRetriesStoreFailure(t *testing.T) {
	boom := errors.New("database is locked")
	store := &fakeStore{importFn: func(core.Ledger) error { return boom }}
	w := NewImportWorker(store, "", nil)
	w.open = func(string) ledger.Source { return fakeSource{l: core.Ledger{{Category: "A"}}} }

	err := w.HandleLedgerImport(context.Background(), &amqp.LedgerImportMessage{ID: "a", Path: "/ok.csv"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.failed)
}

func TestSeedIfEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "seed.csv")

	store := &fakeStore{}
	w := NewImportWorker(store, "", nil)
	require.NoError(t, w.SeedIfEmpty(context.Background(), ""))
	assert.Empty(t, store.runs)

	require.NoError(t, w.SeedIfEmpty(context.Background(), path))
	assert.Len(t, store.runs, 1)

	require.NoError(t, w.SeedIfEmpty(context.Background(), path))
	assert.Len(t, store.runs, 1, "non-empty store must not be reseeded")
}

func TestImportIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "operations.csv")
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "ledger.db"), nil)
	require.NoError(t, err)
	defer repo.Close()

	w := NewImportWorker(repo, dir, nil)
	n, err := w.Import(context.Background(), "run-1", "operations.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	l, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, l, 2)
	assert.Equal(t, "Ж/д билеты", l[0].Category)

	runs, err := repo.RecentImports(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.ImportCompleted, runs[0].Status)
}
