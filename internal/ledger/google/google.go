// Package google reads the ledger from a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"finreport/internal/core"
	"finreport/internal/ledger"
	"finreport/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures the Sheets client.
type Options struct {
	SpreadsheetID string
	// SheetName is the tab holding the export; the whole tab is read.
	SheetName string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	// OAuth, when its TokenFile is set, replaces the service account.
	OAuth OAuthOptions
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ledger.Source = (*Client)(nil)

// New creates a Sheets client authenticated with a service account, or with
// a saved user token when opts.OAuth is set.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	auth, err := clientOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, auth...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, opts, logger)
}

func clientOptions(ctx context.Context, opts Options) ([]goption.ClientOption, error) {
	if opts.OAuth.enabled() {
		cfg, err := OAuthConfig(opts.OAuth.ClientJSON, opts.OAuth.ClientFile)
		if err != nil {
			return nil, err
		}
		tok, err := ReadToken(opts.OAuth.TokenFile)
		if err != nil {
			return nil, err
		}
		return []goption.ClientOption{goption.WithTokenSource(cfg.TokenSource(ctx, tok))}, nil
	}
	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
	}, nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, opts Options, logger *log.Logger) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = "Operations"
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: id,
		sheetName:     sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func credentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// Load reads every row of the configured tab.
func (c *Client) Load(ctx context.Context) (core.Ledger, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.sheetName, err)
	}
	l, issues, err := ledger.ParseRows(toRows(resp.Values))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.sheetName, err)
	}
	for _, issue := range issues {
		c.logger.WarnContext(ctx, "Skipping sheet row",
			log.FieldSource, c.sheetName,
			log.FieldRow, issue.Line,
			log.FieldError, issue.Error())
	}
	return l, nil
}

func toRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
