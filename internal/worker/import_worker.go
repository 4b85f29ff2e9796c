// Package worker loads ledger files into the SQLite store on request.
package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"finreport/internal/amqp"
	"finreport/internal/core"
	"finreport/internal/ledger"
	"finreport/internal/ledger/file"
	"finreport/internal/log"
	"finreport/internal/storage"

	"github.com/google/uuid"
)

// ErrRejected marks imports that will never succeed on retry: a bad path,
// an unreadable file or a file without the required columns.
var ErrRejected = errors.New("import rejected")

// Store is the subset of the SQLite repository the worker writes to.
type Store interface {
	ledger.Source
	ImportLedger(ctx context.Context, run storage.ImportRun, l core.Ledger) (int, error)
	RecordFailedImport(ctx context.Context, run storage.ImportRun, cause error) error
}

type ImportWorker struct {
	store  Store
	dir    string
	open   func(path string) ledger.Source
	logger *log.Logger
	now    func() time.Time
}

// NewImportWorker returns a worker writing to store. When dir is set,
// relative paths resolve against it and paths outside it are rejected.
func NewImportWorker(store Store, dir string, logger *log.Logger) *ImportWorker {
	if logger == nil {
		logger = log.NewNop()
	}
	w := &ImportWorker{
		store:  store,
		dir:    strings.TrimSpace(dir),
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
	w.open = func(path string) ledger.Source { return file.New(path, logger) }
	return w
}

// HandleLedgerImport processes one queued import. Rejected imports are
// recorded and acknowledged; only store failures are returned for retry.
func (w *ImportWorker) HandleLedgerImport(ctx context.Context, msg *amqp.LedgerImportMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger import",
		log.FieldImportID, msg.ID,
		log.FieldFile, msg.Path)

	_, err := w.Import(ctx, msg.ID, msg.Path)
	if errors.Is(err, ErrRejected) {
		return nil
	}
	return err
}

// Import reads the file at path and replaces the stored ledger with it.
// An empty id gets a fresh one.
func (w *ImportWorker) Import(ctx context.Context, id, path string) (int, error) {
	if id == "" {
		id = uuid.NewString()
	}
	start := w.now()
	run := storage.ImportRun{ID: id, SourcePath: path, StartedAt: start.UTC()}

	resolved, err := w.resolve(path)
	if err != nil {
		return 0, w.reject(ctx, run, err)
	}
	run.SourcePath = resolved

	l, err := w.open(resolved).Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, w.reject(ctx, run, err)
	}

	n, err := w.store.ImportLedger(ctx, run, l)
	if err != nil {
		return 0, fmt.Errorf("store ledger: %w", err)
	}

	w.logger.InfoContext(ctx, "Ledger imported",
		log.FieldImportID, id,
		log.FieldFile, resolved,
		log.FieldRows, n,
		log.FieldDuration, w.now().Sub(start).Milliseconds())
	return n, nil
}

// SeedIfEmpty imports path when the store holds no rows yet. It is a no-op
// when path is empty.
func (w *ImportWorker) SeedIfEmpty(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	l, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("check stored ledger: %w", err)
	}
	if len(l) > 0 {
		w.logger.InfoContext(ctx, "Stored ledger present, skipping seed", log.FieldRows, len(l))
		return nil
	}
	_, err = w.Import(ctx, "", path)
	return err
}

func (w *ImportWorker) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("empty path")
	}
	if w.dir == "" {
		return filepath.Clean(path), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.dir, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(filepath.Clean(w.dir), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the import directory", path)
	}
	return path, nil
}

func (w *ImportWorker) reject(ctx context.Context, run storage.ImportRun, cause error) error {
	run.FinishedAt = w.now().UTC()
	if err := w.store.RecordFailedImport(ctx, run, cause); err != nil {
		w.logger.ErrorContext(ctx, "Failed to record rejected import",
			log.FieldImportID, run.ID,
			log.FieldError, err)
	}
	w.logger.WarnContext(ctx, "Ledger import rejected",
		log.FieldImportID, run.ID,
		log.FieldFile, run.SourcePath,
		log.FieldError, cause)
	return fmt.Errorf("%w: %w", ErrRejected, cause)
}
