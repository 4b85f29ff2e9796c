package backend

import (
	"context"
	"fmt"

	"finreport/internal/ledger/file"
	"finreport/internal/ledger/google"
	"finreport/internal/ledger/memory"
	"finreport/internal/log"
	"finreport/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.NewNop()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create implements Factory.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFile(config)
	case SQLiteBackend:
		return f.createSQLite(config)
	case SheetsBackend:
		return f.createSheets(ctx, config)
	case MemoryBackend:
		return f.createMemory(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFile(config Config) (*Result, error) {
	src := file.New(config.LedgerPath, f.logger)
	f.logger.Info("Initialized file backend", log.FieldFile, config.LedgerPath)
	return &Result{Source: src}, nil
}

func (f *DefaultFactory) createSQLite(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Source:   repo,
		Replacer: repo,
		Store:    repo,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheets(ctx context.Context, config Config) (*Result, error) {
	cli, err := google.New(ctx, google.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleCredentialsJSON,
		CredentialsFile: config.GoogleCredentialsFile,
		OAuth: google.OAuthOptions{
			ClientJSON: config.GoogleOAuthClientJSON,
			ClientFile: config.GoogleOAuthClientFile,
			TokenFile:  config.GoogleOAuthTokenFile,
		},
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{Source: cli}, nil
}

func (f *DefaultFactory) createMemory(ctx context.Context, config Config) (*Result, error) {
	if config.LedgerPath == "" {
		f.logger.Info("Initialized empty memory backend")
		store := memory.New(nil)
		return &Result{Source: store, Replacer: store}, nil
	}

	store, err := memory.NewFromSource(ctx, file.New(config.LedgerPath, f.logger))
	if err != nil {
		f.logger.Warn("Memory backend seed failed, starting empty",
			log.FieldFile, config.LedgerPath,
			log.FieldError, err)
	} else {
		f.logger.Info("Initialized memory backend", log.FieldFile, config.LedgerPath)
	}
	return &Result{Source: store, Replacer: store}, nil
}
