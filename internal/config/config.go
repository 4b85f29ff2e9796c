package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

var (
	validBackends  = []string{BackendFile, BackendSQLite, BackendSheets, BackendMemory}
	validLogFormat = []string{"text", "json"}
	validFallback  = []string{"requested", "legacy"}
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Ledger
	LedgerBackend string
	LedgerPath    string
	SettingsPath  string
	ImportDir     string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// OAuth alternative to a service account, see cmd/sheets-auth.
	GoogleOAuthClientJSON string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	OAuthRedirectPort     string

	// Quote providers
	CurrencyAPIURL   string
	CurrencyAPIKey   string
	TargetCurrency   string
	StockAPIURL      string
	QuoteTimeout     time.Duration
	QuoteConcurrency int
	QuoteRateLimit   float64
	QuoteCacheSize   int
	QuoteCacheTTL    time.Duration
	StockFallback    string

	CacheCleanupInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogFile:   getEnv("LOG_FILE", ""),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", BackendFile)),
		LedgerPath:    getEnv("LEDGER_PATH", "./data/operations.xlsx"),
		SettingsPath:  getEnv("SETTINGS_PATH", "./user_settings.json"),
		ImportDir:     getEnv("LEDGER_IMPORT_DIR", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finreport.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finreport"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_imports"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Operations"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		OAuthRedirectPort:        getEnv("OAUTH_REDIRECT_PORT", "8085"),

		CurrencyAPIURL:   getEnv("CURRENCY_API_URL", "https://api.currencyapi.com/v3/historical"),
		CurrencyAPIKey:   getEnv("CURRENCY_API_KEY", ""),
		TargetCurrency:   strings.ToUpper(getEnv("TARGET_CURRENCY", "RUB")),
		StockAPIURL:      getEnv("STOCK_API_URL", "https://query1.finance.yahoo.com"),
		QuoteTimeout:     getEnvDuration("QUOTE_TIMEOUT", 5*time.Second),
		QuoteConcurrency: getEnvInt("QUOTE_CONCURRENCY", 4),
		QuoteRateLimit:   getEnvFloat("QUOTE_RATE_LIMIT", 5),
		QuoteCacheSize:   getEnvInt("QUOTE_CACHE_SIZE", 256),
		QuoteCacheTTL:    getEnvDuration("QUOTE_CACHE_TTL", time.Hour),
		StockFallback:    strings.ToLower(getEnv("STOCK_FALLBACK", "requested")),

		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.LogFormat != "" && !slices.Contains(validLogFormat, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormat))
	}

	if !slices.Contains(validBackends, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	switch c.LedgerBackend {
	case BackendFile:
		if c.LedgerPath == "" {
			errors = append(errors, "ledger path cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	for name, raw := range map[string]string{"currency API URL": c.CurrencyAPIURL, "stock API URL": c.StockAPIURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s'", name, raw))
		}
	}
	if len(c.TargetCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid target currency '%s': must be a 3-letter code", c.TargetCurrency))
	}
	if c.QuoteTimeout < 100*time.Millisecond || c.QuoteTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid quote timeout %v: must be between 100ms and 1m", c.QuoteTimeout))
	}
	if c.QuoteConcurrency < 1 || c.QuoteConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid quote concurrency %d: must be between 1 and 64", c.QuoteConcurrency))
	}
	if c.QuoteRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid quote rate limit %v: must not be negative", c.QuoteRateLimit))
	}
	if c.QuoteCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid quote cache size %d: must not be negative", c.QuoteCacheSize))
	}
	if !slices.Contains(validFallback, c.StockFallback) {
		errors = append(errors, fmt.Sprintf("invalid stock fallback '%s': must be one of %v", c.StockFallback, validFallback))
	}

	if c.RateLimitRPS < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must not be negative", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when using sheets backend")
	}
	if c.GoogleOAuthTokenFile != "" {
		if c.GoogleOAuthClientJSON == "" && c.GoogleOAuthClientFile == "" {
			errors = append(errors, "GOOGLE_OAUTH_TOKEN_FILE requires GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
		}
		if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s (run sheets-auth)", c.GoogleOAuthTokenFile))
		}
		return errors
	}
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend, or GOOGLE_OAUTH_TOKEN_FILE with an OAuth client")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

// AMQPEnabled reports whether the import pipeline has a broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
