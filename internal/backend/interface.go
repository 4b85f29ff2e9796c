// Package backend builds the configured ledger source.
package backend

import (
	"context"

	"finreport/internal/ledger"
	"finreport/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready ledger source plus what the caller must release.
type Result struct {
	Source ledger.Source
	// Replacer is set when the backend accepts a whole new ledger.
	Replacer ledger.Replacer
	// Store is set for the sqlite backend, which also records import runs.
	Store   *storage.SQLiteRepository
	Cleanup CleanupFunc
}

// Close runs Cleanup when there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledger sources based on configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// File and memory seed
	LedgerPath string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	GoogleOAuthClientJSON string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
}

type Type string

const (
	FileBackend   Type = "file"
	SQLiteBackend Type = "sqlite"
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case FileBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
