package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finreport/internal/core"
	"finreport/internal/ledger"
	"finreport/internal/log"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type ImportStatus string

const (
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// ImportRun is one attempt to load a ledger file into the database.
type ImportRun struct {
	ID         string       `json:"id"`
	SourcePath string       `json:"source_path"`
	Status     ImportStatus `json:"status"`
	Rows       int          `json:"rows"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// SQLiteRepository persists the ledger in a SQLite database. Rows keep the
// order they were written in.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

var (
	_ ledger.Source   = (*SQLiteRepository)(nil)
	_ ledger.Replacer = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("empty sqlite database path")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("SQLite ledger ready", log.FieldFile, dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements ledger.Source.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Ledger, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make(core.Ledger, 0, len(rows))
	for _, row := range rows {
		t, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %d: %w", row.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ReplaceAll implements ledger.Replacer.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, l core.Ledger) (int, error) {
	return r.replace(ctx, l, nil)
}

// ImportLedger replaces the stored ledger and records run in the same
// transaction. Either both land or neither does.
func (r *SQLiteRepository) ImportLedger(ctx context.Context, run ImportRun, l core.Ledger) (int, error) {
	if run.ID == "" {
		return 0, errors.New("import run without id")
	}
	run.Status = ImportCompleted
	run.Error = ""
	return r.replace(ctx, l, &run)
}

// RecordFailedImport stores a failed run. The ledger is left untouched.
func (r *SQLiteRepository) RecordFailedImport(ctx context.Context, run ImportRun, cause error) error {
	if run.ID == "" {
		return errors.New("import run without id")
	}
	run.Status = ImportFailed
	run.Rows = 0
	if cause != nil {
		run.Error = cause.Error()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = r.now().UTC()
	}
	if err := r.queries.InsertImportRun(ctx, runParams(run)); err != nil {
		return fmt.Errorf("record failed import: %w", err)
	}
	return nil
}

// RecentImports returns up to limit runs, newest first.
func (r *SQLiteRepository) RecentImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.queries.ListImportRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	out := make([]ImportRun, 0, len(rows))
	for _, row := range rows {
		out = append(out, ImportRun{
			ID:         row.ID,
			SourcePath: row.SourcePath,
			Status:     ImportStatus(row.Status),
			Rows:       int(row.RowCount),
			Error:      row.Error.String,
			StartedAt:  row.StartedAt,
			FinishedAt: row.FinishedAt,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) replace(ctx context.Context, l core.Ledger, run *ImportRun) (n int, err error) {
	start := r.now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := r.queries.WithTx(tx)
	if err = q.DeleteTransactions(ctx); err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	for i, t := range l {
		if err = q.InsertTransaction(ctx, toParams(int64(i), t)); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if run != nil {
		run.Rows = len(l)
		if run.FinishedAt.IsZero() {
			run.FinishedAt = r.now().UTC()
		}
		if err = q.InsertImportRun(ctx, runParams(*run)); err != nil {
			return 0, fmt.Errorf("record import: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "Ledger replaced",
		log.FieldRows, len(l),
		log.FieldDuration, time.Since(start).Milliseconds())
	return len(l), nil
}

func runParams(run ImportRun) InsertImportRunParams {
	started := run.StartedAt
	if started.IsZero() {
		started = run.FinishedAt
	}
	return InsertImportRunParams{
		ID:         run.ID,
		SourcePath: run.SourcePath,
		Status:     string(run.Status),
		RowCount:   int64(run.Rows),
		Error:      sql.NullString{String: run.Error, Valid: run.Error != ""},
		StartedAt:  started.UTC(),
		FinishedAt: run.FinishedAt.UTC(),
	}
}

func toParams(pos int64, t core.Transaction) InsertTransactionParams {
	return InsertTransactionParams{
		Position:           pos,
		OperationDate:      t.OperationDate,
		PaymentDate:        t.PaymentDate,
		CardNumber:         t.CardNumber,
		Status:             string(t.Status),
		OperationAmount:    t.OperationAmount.String(),
		OperationCurrency:  t.OperationCurrency,
		PaymentAmount:      t.PaymentAmount.String(),
		PaymentCurrency:    t.PaymentCurrency,
		Cashback:           sql.NullString{String: t.Cashback.Decimal.String(), Valid: t.Cashback.Valid},
		Category:           t.Category,
		Mcc:                int64(t.MCC),
		Description:        t.Description,
		Bonuses:            t.Bonuses.String(),
		InvestmentRounding: t.InvestmentRounding.String(),
		RoundedAmount:      t.RoundedAmount.String(),
	}
}

func fromRow(row LedgerTransaction) (core.Transaction, error) {
	t := core.Transaction{
		OperationDate:     row.OperationDate,
		PaymentDate:       row.PaymentDate,
		CardNumber:        row.CardNumber,
		Status:            core.Status(row.Status),
		OperationCurrency: row.OperationCurrency,
		PaymentCurrency:   row.PaymentCurrency,
		Category:          row.Category,
		MCC:               int(row.Mcc),
		Description:       row.Description,
	}
	fields := []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&t.OperationAmount, row.OperationAmount},
		{&t.PaymentAmount, row.PaymentAmount},
		{&t.Bonuses, row.Bonuses},
		{&t.InvestmentRounding, row.InvestmentRounding},
		{&t.RoundedAmount, row.RoundedAmount},
	}
	for _, f := range fields {
		d, err := storedDecimal(f.raw)
		if err != nil {
			return core.Transaction{}, err
		}
		*f.dst = d
	}
	if row.Cashback.Valid {
		d, err := storedDecimal(row.Cashback.String)
		if err != nil {
			return core.Transaction{}, err
		}
		t.Cashback = decimal.NewNullDecimal(d)
	}
	return t, nil
}

func storedDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return d, nil
}
