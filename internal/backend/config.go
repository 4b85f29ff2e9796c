package backend

import (
	"errors"
	"fmt"
	"strings"

	"finreport/internal/config"
)

// FromAppConfig picks the backend fields out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("backend: nil app config")
	}
	c := Config{
		Type:                  Type(appConfig.LedgerBackend),
		LedgerPath:            appConfig.LedgerPath,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleSheetName:       appConfig.GoogleSheetName,
		GoogleCredentialsJSON: appConfig.GoogleServiceAccountJSON,
		GoogleCredentialsFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientJSON: appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
	}
	if !c.Type.IsValid() {
		return Config{}, fmt.Errorf("backend: unknown type %q in config", appConfig.LedgerBackend)
	}
	return c, nil
}

// Validate reports every setting the chosen backend is missing.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("backend: unknown type %q", c.Type)
	}
	var missing []string
	need := func(ok bool, what string) {
		if !ok {
			missing = append(missing, what)
		}
	}
	switch c.Type {
	case FileBackend:
		need(c.LedgerPath != "", "ledger path")
	case SQLiteBackend:
		need(c.SQLiteDBPath != "", "sqlite database path")
	case SheetsBackend:
		need(c.GoogleSpreadsheetID != "", "spreadsheet id")
		if c.GoogleOAuthTokenFile != "" {
			need(c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "", "oauth client for the oauth token")
		} else {
			need(c.GoogleCredentialsJSON != "" || c.GoogleCredentialsFile != "", "service account credentials")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("backend %s: missing %s", c.Type, strings.Join(missing, ", "))
	}
	return nil
}

// Types lists the supported backends.
func Types() []Type {
	return []Type{FileBackend, SQLiteBackend, SheetsBackend, MemoryBackend}
}
