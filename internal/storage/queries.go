package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type LedgerTransaction struct {
	ID                 int64
	Position           int64
	OperationDate      string
	PaymentDate        string
	CardNumber         string
	Status             string
	OperationAmount    string
	OperationCurrency  string
	PaymentAmount      string
	PaymentCurrency    string
	Cashback           sql.NullString
	Category           string
	Mcc                int64
	Description        string
	Bonuses            string
	InvestmentRounding string
	RoundedAmount      string
}

type ImportRunRow struct {
	ID         string
	SourcePath string
	Status     string
	RowCount   int64
	Error      sql.NullString
	StartedAt  time.Time
	FinishedAt time.Time
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, position, operation_date, payment_date, card_number, status, operation_amount,
       operation_currency, payment_amount, payment_currency, cashback, category, mcc,
       description, bonuses, investment_rounding, rounded_amount
FROM ledger_transactions
ORDER BY position, id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]LedgerTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerTransaction
	for rows.Next() {
		var i LedgerTransaction
		if err := rows.Scan(
			&i.ID,
			&i.Position,
			&i.OperationDate,
			&i.PaymentDate,
			&i.CardNumber,
			&i.Status,
			&i.OperationAmount,
			&i.OperationCurrency,
			&i.PaymentAmount,
			&i.PaymentCurrency,
			&i.Cashback,
			&i.Category,
			&i.Mcc,
			&i.Description,
			&i.Bonuses,
			&i.InvestmentRounding,
			&i.RoundedAmount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTransactions = `-- name: DeleteTransactions :exec
DELETE FROM ledger_transactions
`

func (q *Queries) DeleteTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteTransactions)
	return err
}

const insertTransaction = `-- name: InsertTransaction :exec
INSERT INTO ledger_transactions (
    position, operation_date, payment_date, card_number, status, operation_amount,
    operation_currency, payment_amount, payment_currency, cashback, category, mcc,
    description, bonuses, investment_rounding, rounded_amount
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertTransactionParams struct {
	Position           int64
	OperationDate      string
	PaymentDate        string
	CardNumber         string
	Status             string
	OperationAmount    string
	OperationCurrency  string
	PaymentAmount      string
	PaymentCurrency    string
	Cashback           sql.NullString
	Category           string
	Mcc                int64
	Description        string
	Bonuses            string
	InvestmentRounding string
	RoundedAmount      string
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.Position,
		arg.OperationDate,
		arg.PaymentDate,
		arg.CardNumber,
		arg.Status,
		arg.OperationAmount,
		arg.OperationCurrency,
		arg.PaymentAmount,
		arg.PaymentCurrency,
		arg.Cashback,
		arg.Category,
		arg.Mcc,
		arg.Description,
		arg.Bonuses,
		arg.InvestmentRounding,
		arg.RoundedAmount,
	)
	return err
}

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM ledger_transactions
`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertImportRun = `-- name: InsertImportRun :exec
INSERT INTO import_runs (id, source_path, status, row_count, error, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    status = excluded.status,
    row_count = excluded.row_count,
    error = excluded.error,
    finished_at = excluded.finished_at
`

type InsertImportRunParams struct {
	ID         string
	SourcePath string
	Status     string
	RowCount   int64
	Error      sql.NullString
	StartedAt  time.Time
	FinishedAt time.Time
}

func (q *Queries) InsertImportRun(ctx context.Context, arg InsertImportRunParams) error {
	_, err := q.db.ExecContext(ctx, insertImportRun,
		arg.ID,
		arg.SourcePath,
		arg.Status,
		arg.RowCount,
		arg.Error,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const listImportRuns = `-- name: ListImportRuns :many
SELECT id, source_path, status, row_count, error, started_at, finished_at
FROM import_runs
ORDER BY started_at DESC
LIMIT ?
`

func (q *Queries) ListImportRuns(ctx context.Context, limit int64) ([]ImportRunRow, error) {
	rows, err := q.db.QueryContext(ctx, listImportRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportRunRow
	for rows.Next() {
		var i ImportRunRow
		if err := rows.Scan(
			&i.ID,
			&i.SourcePath,
			&i.Status,
			&i.RowCount,
			&i.Error,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
